package anchor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CombineFunc merges the outputs of parallel siblings, given in the order
// the siblings were registered.
type CombineFunc[Part, Out any] func(ctx context.Context, parts []Part) (Out, error)

// Combine adapts a synchronous merge function into a CombineFunc.
func Combine[Part, Out any](fn func(parts []Part) (Out, error)) CombineFunc[Part, Out] {
	return func(_ context.Context, parts []Part) (Out, error) {
		return fn(parts)
	}
}

type parallelOptions struct {
	name  string
	limit int
}

// ParallelOption configures a ParallelNode.
type ParallelOption func(*parallelOptions)

// WithConcurrency caps the number of siblings running at once. Zero or a
// negative value runs all siblings at once.
func WithConcurrency(n int) ParallelOption {
	return func(o *parallelOptions) {
		o.limit = n
	}
}

// WithParallelName names the node.
func WithParallelName(name string) ParallelOption {
	return func(o *parallelOptions) {
		o.name = name
	}
}

// ParallelNode runs every sibling on its own copy of the input and merges
// the outputs with a combiner. The first sibling failure cancels the rest
// and the combiner is not called.
type ParallelNode[In, Part, Out any] struct {
	nodes   []Node[In, Part]
	combine CombineFunc[Part, Out]
	opts    parallelOptions
}

// NewParallelNode creates a parallel node over nodes.
func NewParallelNode[In, Part, Out any](nodes []Node[In, Part], combine CombineFunc[Part, Out], opts ...ParallelOption) *ParallelNode[In, Part, Out] {
	o := parallelOptions{name: "parallel"}
	for _, opt := range opts {
		opt(&o)
	}
	return &ParallelNode[In, Part, Out]{
		nodes:   append([]Node[In, Part](nil), nodes...),
		combine: combine,
		opts:    o,
	}
}

// Name implements Named.
func (p *ParallelNode[In, Part, Out]) Name() string { return p.opts.name }

// Len returns the number of siblings.
func (p *ParallelNode[In, Part, Out]) Len() int { return len(p.nodes) }

// SetState forwards shared state to every sibling.
func (p *ParallelNode[In, Part, Out]) SetState(state *StateManager) {
	for _, n := range p.nodes {
		if s, ok := n.(Stateful); ok {
			s.SetState(state)
		}
	}
}

// Process fans input out to the siblings and combines their outputs.
func (p *ParallelNode[In, Part, Out]) Process(ctx context.Context, input In) (Out, error) {
	var zero Out

	results := make([]Part, len(p.nodes))
	g, gctx := errgroup.WithContext(ctx)
	if p.opts.limit > 0 {
		g.SetLimit(p.opts.limit)
	}

	for i, node := range p.nodes {
		in := Clone(input)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &BranchError{Index: i, Name: NameOf(node), Err: Normalize(err)}
			}
			out, err := node.Process(gctx, in)
			if err != nil {
				return &BranchError{Index: i, Name: NameOf(node), Err: Normalize(err)}
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return zero, err
	}

	out, err := p.combine(ctx, results)
	if err != nil {
		return zero, Normalize(err)
	}
	return out, nil
}
