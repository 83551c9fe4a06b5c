package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/internal/testutil"
)

func TestSequential(t *testing.T) {
	rec := &testutil.Recorder{}
	primary := testutil.Fail[string, string](rec, "primary", anchor.NewError(anchor.KindOpenAI, "429"))
	backup := testutil.Transform(rec, "backup", func(s string) string { return "backup:" + s })
	never := testutil.Transform(rec, "never", func(s string) string { return s })

	state := anchor.NewStateManager()
	node := New(primary, []anchor.Node[string, string]{backup, never}, WithName("model"))
	node.SetState(state)

	got, err := node.Process(context.Background(), "q")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got != "backup:q" {
		t.Errorf("Process() = %q", got)
	}
	if diff := cmp.Diff([]string{"primary", "backup"}, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if v, _ := state.Get(context.Background(), "fallback:model:succeeded_at"); v != "backup" {
		t.Errorf("succeeded_at = %v, want backup", v)
	}

	stats := node.Stats()
	if stats["primary"].Failures != 1 || stats["backup"].Successes != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestAllAlternativesFail(t *testing.T) {
	rec := &testutil.Recorder{}
	node := New(
		testutil.Fail[string, string](rec, "a", anchor.NewError(anchor.KindHTTP, "down")),
		[]anchor.Node[string, string]{testutil.Fail[string, string](rec, "b", anchor.NewError(anchor.KindOpenAI, "500"))},
	)

	_, err := node.Process(context.Background(), "q")
	if !errors.Is(err, anchor.ErrHTTP) || !errors.Is(err, anchor.ErrOpenAI) {
		t.Errorf("Process() error = %v, want both failures", err)
	}
	want := "all 2 alternatives failed: a: http error: down\nb: openai error: 500"
	if err == nil || err.Error() != want {
		t.Errorf("Process() error = %q, want %q", err, want)
	}
}

type draft struct {
	edits []string
}

func (d *draft) Clone() *draft {
	return &draft{edits: append([]string(nil), d.edits...)}
}

func TestAlternativesGetOwnInput(t *testing.T) {
	editor := func(name string, fail bool) anchor.Node[*draft, int] {
		return anchor.Func(name, func(ctx context.Context, d *draft) (int, error) {
			d.edits = append(d.edits, name)
			if fail {
				return 0, anchor.NewError(anchor.KindModel, name+" failed")
			}
			return len(d.edits), nil
		})
	}

	for _, strategy := range []Strategy{Sequential, Race} {
		in := &draft{edits: []string{"orig"}}
		node := New(editor("first", true), []anchor.Node[*draft, int]{editor("second", false)},
			WithStrategy(strategy))

		got, err := node.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("strategy %d: Process() error = %v", strategy, err)
		}
		if got != 2 {
			t.Errorf("strategy %d: second alternative saw %d edits, want 2", strategy, got)
		}
		if diff := cmp.Diff([]string{"orig"}, in.edits); diff != "" {
			t.Errorf("strategy %d: input was modified (-want +got):\n%s", strategy, diff)
		}
	}
}

func TestRace(t *testing.T) {
	rec := &testutil.Recorder{}
	slow := testutil.Delay(rec, "slow", time.Second, func(s string) string { return "slow" })
	fast := testutil.Delay(rec, "fast", 5*time.Millisecond, func(s string) string { return "fast" })

	node := New(slow, []anchor.Node[string, string]{fast}, WithStrategy(Race))

	start := time.Now()
	got, err := node.Process(context.Background(), "q")
	if err != nil || got != "fast" {
		t.Fatalf("Process() = %q, %v", got, err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Race waited for the slow alternative")
	}
}

func TestFallbackInChain(t *testing.T) {
	rec := &testutil.Recorder{}
	node := New(
		testutil.Fail[string, string](rec, "primary", errors.New("boom")),
		[]anchor.Node[string, string]{testutil.Transform(rec, "backup", func(s string) string { return s + "!" })},
	)
	chain := anchor.Then(anchor.NewBuilder[string, string](anchor.Passthrough[string]{}), anchor.Node[string, string](node)).Build()

	got, err := chain.Process(context.Background(), "hi")
	if err != nil || got != "hi!" {
		t.Errorf("Process() = %q, %v", got, err)
	}
}
