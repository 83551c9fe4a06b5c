// Package batch applies anchor nodes to slices of items.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/agentstation/anchor"
)

// Option configures a batch node.
type Option func(*options)

type options struct {
	name           string
	maxConcurrency int
}

// WithConcurrency sets the maximum number of items processed at once.
// Values below 2 process items sequentially.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithName sets the node name reported to chains.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Node applies an inner node to every item of its input slice. Results keep
// the input order and the first failure cancels the remaining items.
type Node[In, Out any] struct {
	node           anchor.Node[In, Out]
	name           string
	maxConcurrency int
}

// Map returns a node that runs node over every item.
func Map[In, Out any](node anchor.Node[In, Out], opts ...Option) *Node[In, Out] {
	o := &options{
		name:           "map " + anchor.NameOf(node),
		maxConcurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Node[In, Out]{node: node, name: o.name, maxConcurrency: o.maxConcurrency}
}

// Name implements anchor.Named.
func (n *Node[In, Out]) Name() string { return n.name }

// SetState forwards state to the inner node.
func (n *Node[In, Out]) SetState(state *anchor.StateManager) {
	if s, ok := n.node.(anchor.Stateful); ok {
		s.SetState(state)
	}
}

// Process runs the inner node on every item.
func (n *Node[In, Out]) Process(ctx context.Context, items []In) ([]Out, error) {
	if len(items) == 0 {
		return []Out{}, nil
	}
	if n.maxConcurrency <= 1 {
		return n.processSequential(ctx, items)
	}
	return n.processConcurrent(ctx, items)
}

func (n *Node[In, Out]) processSequential(ctx context.Context, items []In) ([]Out, error) {
	results := make([]Out, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := n.node.Process(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results[i] = out
	}
	return results, nil
}

func (n *Node[In, Out]) processConcurrent(ctx context.Context, items []In) ([]Out, error) {
	size := n.maxConcurrency
	if size > len(items) {
		size = len(items)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	results := make([]Out, len(items))
	for i, item := range items {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out, err := n.node.Process(ctx, item)
			if err != nil {
				fail(fmt.Errorf("item %d: %w", i, err))
				return
			}
			results[i] = out
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			fail(fmt.Errorf("submit item %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Filter returns a node keeping the items for which predicate reports true.
// Predicates run concurrently like Map.
func Filter[T any](predicate func(ctx context.Context, item T) (bool, error), opts ...Option) anchor.Node[[]T, []T] {
	type kept struct {
		item T
		keep bool
	}
	check := anchor.Func("filter", func(ctx context.Context, item T) (kept, error) {
		keep, err := predicate(ctx, item)
		return kept{item: item, keep: keep}, err
	})
	m := Map(check, append([]Option{WithName("filter")}, opts...)...)

	return anchor.Func(m.Name(), func(ctx context.Context, items []T) ([]T, error) {
		results, err := m.Process(ctx, items)
		if err != nil {
			return nil, err
		}
		filtered := make([]T, 0, len(results))
		for _, r := range results {
			if r.keep {
				filtered = append(filtered, r.item)
			}
		}
		return filtered, nil
	})
}
