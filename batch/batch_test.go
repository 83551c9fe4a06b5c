package batch_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/batch"
)

func upper() anchor.Node[string, string] {
	return anchor.Func("upper", func(ctx context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})
}

func TestMap(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		input       []string
		want        []string
	}{
		{"sequential", 1, []string{"a", "b", "c"}, []string{"A", "B", "C"}},
		{"concurrent", 4, []string{"a", "b", "c", "d", "e"}, []string{"A", "B", "C", "D", "E"}},
		{"empty", 4, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := batch.Map(upper(), batch.WithConcurrency(tt.concurrency))
			got, err := node.Process(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Process() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapKeepsOrder(t *testing.T) {
	slowFirst := anchor.Func("sleep", func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n * n, nil
	})
	got, err := batch.Map(slowFirst, batch.WithConcurrency(10)).Process(context.Background(), []int{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 4, 9, 16, 25}, got); diff != "" {
		t.Errorf("Process() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapFailFast(t *testing.T) {
	var started atomic.Int32
	node := anchor.Func("check", func(ctx context.Context, n int) (int, error) {
		started.Add(1)
		if n == 0 {
			return 0, anchor.NewError(anchor.KindInvalidInput, "zero")
		}
		select {
		case <-time.After(time.Second):
			return n, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	start := time.Now()
	_, err := batch.Map(node, batch.WithConcurrency(4)).Process(context.Background(), []int{0, 1, 2, 3})
	if !errors.Is(err, anchor.ErrInvalidInput) {
		t.Fatalf("Process() error = %v, want invalid input", err)
	}
	if !strings.Contains(err.Error(), "item 0") {
		t.Errorf("error %q does not name the item", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("remaining items were not cancelled")
	}
}

func TestMapInChain(t *testing.T) {
	split := anchor.Func("split", func(ctx context.Context, s string) ([]string, error) {
		return strings.Fields(s), nil
	})
	join := anchor.Func("join", func(ctx context.Context, parts []string) (string, error) {
		return strings.Join(parts, "-"), nil
	})

	b := anchor.Then(anchor.NewBuilder(split), anchor.Node[[]string, []string](batch.Map(upper())))
	chain := anchor.Then(b, join).Build()

	got, err := chain.Process(context.Background(), "a b c")
	if err != nil || got != "A-B-C" {
		t.Errorf("Process() = %q, %v", got, err)
	}
	if diff := cmp.Diff([]string{"split", "map upper", "join"}, chain.Stages()); diff != "" {
		t.Errorf("Stages() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	even := batch.Filter(func(ctx context.Context, n int) (bool, error) {
		return n%2 == 0, nil
	}, batch.WithConcurrency(3))

	got, err := even.Process(context.Background(), []int{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if diff := cmp.Diff([]int{2, 4, 6}, got); diff != "" {
		t.Errorf("Process() mismatch (-want +got):\n%s", diff)
	}
}
