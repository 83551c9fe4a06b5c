package middleware

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/internal/testutil"
)

func echo() anchor.Node[string, string] {
	return anchor.Func("echo", func(ctx context.Context, s string) (string, error) { return s, nil })
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware[string, string] {
		return func(node anchor.Node[string, string]) anchor.Node[string, string] {
			return wrap(node, func(ctx context.Context, s string) (string, error) {
				order = append(order, name)
				return node.Process(ctx, s+name)
			})
		}
	}

	node := Chain(tag("a"), tag("b"), tag("c"))(echo())
	got, err := node.Process(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Errorf("Process() = %q, want abc", got)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	order = nil
	applied := Apply(echo(), tag("a"), tag("b"))
	if got, _ := applied.Process(context.Background(), ""); got != "ba" {
		t.Errorf("Apply() result = %q, want ba", got)
	}
	if anchor.NameOf(applied) != "echo" {
		t.Errorf("wrapped name = %q, want echo", anchor.NameOf(applied))
	}
}

func TestLogging(t *testing.T) {
	logger := testutil.NewMockLogger()
	ok := Logging[string, string](logger)(echo())
	if _, err := ok.Process(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if !logger.HasEntry("debug", "node starting") || !logger.HasEntry("info", "node completed") {
		t.Errorf("entries = %+v", logger.Entries())
	}

	failing := Logging[string, string](logger)(anchor.Func("bad", func(ctx context.Context, s string) (string, error) {
		return "", errors.New("nope")
	}))
	if _, err := failing.Process(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if !logger.HasEntry("error", "node failed") {
		t.Error("failure was not logged")
	}
}

func TestTiming(t *testing.T) {
	state := anchor.NewStateManager()
	node := Timing[string, string](state)(echo())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := node.Process(ctx, "x"); err != nil {
			t.Fatal(err)
		}
	}

	count, ok := state.Get(ctx, "node:echo:execution_count")
	if !ok || count.(int64) != 3 {
		t.Errorf("execution_count = %v, want 3", count)
	}
	for _, key := range []string{"last_duration", "total_duration", "avg_duration"} {
		if _, ok := state.Get(ctx, "node:echo:"+key); !ok {
			t.Errorf("missing %s", key)
		}
	}
}

type collector struct {
	mu     sync.Mutex
	starts int
	errs   []error
}

func (c *collector) RecordStart(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
}

func (c *collector) RecordEnd(_ string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func TestMetrics(t *testing.T) {
	c := &collector{}
	node := Metrics[string, string](c)(echo())
	node.Process(context.Background(), "a")
	node.Process(context.Background(), "b")
	if c.starts != 2 || len(c.errs) != 2 || c.errs[0] != nil {
		t.Errorf("collector = %+v", c)
	}
}

func flaky(failures int, err error, calls *atomic.Int32) anchor.Node[string, string] {
	return anchor.Func("flaky", func(ctx context.Context, s string) (string, error) {
		if int(calls.Add(1)) <= failures {
			return "", err
		}
		return s + "!", nil
	})
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int32
		wantErr   bool
	}{
		{"recovers", 2, anchor.NewError(anchor.KindHTTP, "503"), 3, false},
		{"gives up", 10, anchor.NewError(anchor.KindHTTP, "503"), 4, true},
		{"invalid input is final", 10, anchor.NewError(anchor.KindInvalidInput, "empty"), 1, true},
		{"parse is final", 10, anchor.NewError(anchor.KindParse, "bad json"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			node := Retry[string, string](Linear(3, time.Millisecond))(flaky(tt.failures, tt.err, &calls))

			got, err := node.Process(context.Background(), "x")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Process() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != "x!" {
				t.Errorf("Process() = %q", got)
			}
			if tt.wantErr && !errors.Is(err, tt.err) {
				t.Errorf("Process() error = %v does not wrap %v", err, tt.err)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	slow := anchor.Func("slow", func(ctx context.Context, s string) (string, error) {
		select {
		case <-time.After(time.Second):
			return s, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	node := Timeout[string, string](20 * time.Millisecond)(slow)
	start := time.Now()
	_, err := node.Process(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, anchor.ErrModel) {
		t.Errorf("Process() error = %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Timeout did not interrupt the call")
	}

	fast := Timeout[string, string](time.Second)(echo())
	if got, err := fast.Process(context.Background(), "y"); err != nil || got != "y" {
		t.Errorf("Process() = %q, %v", got, err)
	}
}

func TestValidation(t *testing.T) {
	notEmpty := func(s string) error {
		if s == "" {
			return errors.New("empty")
		}
		return nil
	}
	node := Validation(notEmpty, notEmpty)(echo())

	if _, err := node.Process(context.Background(), ""); !errors.Is(err, anchor.ErrInvalidInput) {
		t.Errorf("Process(\"\") error = %v", err)
	}
	if got, err := node.Process(context.Background(), "ok"); err != nil || got != "ok" {
		t.Errorf("Process(ok) = %q, %v", got, err)
	}
}

func TestErrorHandlerAndRecover(t *testing.T) {
	boom := anchor.Func("boom", func(ctx context.Context, s string) (string, error) {
		panic("kaboom")
	})
	node := Apply(boom, Recover[string, string](), ErrorHandler[string, string](func(err error) error {
		return anchor.WrapError(anchor.KindBedrock, err)
	}))

	_, err := node.Process(context.Background(), "x")
	if !errors.Is(err, anchor.ErrBedrock) {
		t.Errorf("Process() error = %v, want bedrock kind", err)
	}
	var inner *anchor.Error
	if !errors.As(errors.Unwrap(err), &inner) || inner.Kind != anchor.KindModel {
		t.Errorf("recovered panic = %v, want model error", errors.Unwrap(err))
	}
}

func TestMiddlewareInChain(t *testing.T) {
	var calls atomic.Int32
	node := Retry[string, string](Linear(2, time.Millisecond))(flaky(1, anchor.NewError(anchor.KindOpenAI, "429"), &calls))

	chain := anchor.Then(anchor.NewBuilder[string, string](anchor.Passthrough[string]{}), node).Build()
	got, err := chain.Process(context.Background(), "hi")
	if err != nil || got != "hi!" {
		t.Errorf("Process() = %q, %v", got, err)
	}
	if diff := cmp.Diff([]string{"passthrough", "flaky"}, chain.Stages()); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
}

func TestCache(t *testing.T) {
	var calls atomic.Int32
	node := anchor.Func("model", func(ctx context.Context, s string) (string, error) {
		calls.Add(1)
		if s == "bad" {
			return "", anchor.NewError(anchor.KindModel, "overloaded")
		}
		return s + "!", nil
	})
	cached := Cache[string, string](2, 0)(node)
	ctx := context.Background()

	for _, in := range []string{"a", "a", "b", "a"} {
		if got, err := cached.Process(ctx, in); err != nil || got != in+"!" {
			t.Fatalf("Process(%q) = %q, %v", in, got, err)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("model called %d times, want 2", n)
	}

	for range 2 {
		if _, err := cached.Process(ctx, "bad"); !errors.Is(err, anchor.ErrModel) {
			t.Fatalf("Process(bad) error = %v", err)
		}
	}
	if n := calls.Load(); n != 4 {
		t.Errorf("failures were cached: %d calls, want 4", n)
	}
	if got := anchor.NameOf(cached); got != "model" {
		t.Errorf("NameOf() = %q, want model", got)
	}
}
