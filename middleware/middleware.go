// Package middleware provides node enhancement patterns for cross-cutting concerns
// like logging, metrics, timing, retries and timeouts. Middleware wraps a node
// from the outside; the chain it is linked into is unaware of it.
package middleware

import (
	"context"

	"github.com/agentstation/anchor"
)

// Middleware modifies node behavior.
type Middleware[In, Out any] func(anchor.Node[In, Out]) anchor.Node[In, Out]

// wrapped keeps the name and state wiring of the inner node.
type wrapped[In, Out any] struct {
	inner   anchor.Node[In, Out]
	name    string
	process func(ctx context.Context, input In) (Out, error)
}

func wrap[In, Out any](inner anchor.Node[In, Out], process func(ctx context.Context, input In) (Out, error)) anchor.Node[In, Out] {
	return &wrapped[In, Out]{inner: inner, name: anchor.NameOf(inner), process: process}
}

func (w *wrapped[In, Out]) Name() string { return w.name }

func (w *wrapped[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	return w.process(ctx, input)
}

func (w *wrapped[In, Out]) SetState(state *anchor.StateManager) {
	if s, ok := w.inner.(anchor.Stateful); ok {
		s.SetState(state)
	}
}

// Chain combines multiple middlewares into a single middleware.
// The first middleware is the outermost.
func Chain[In, Out any](middlewares ...Middleware[In, Out]) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			node = middlewares[i](node)
		}
		return node
	}
}

// Apply applies middleware to a node. The last middleware is the outermost.
func Apply[In, Out any](node anchor.Node[In, Out], middlewares ...Middleware[In, Out]) anchor.Node[In, Out] {
	for _, mw := range middlewares {
		node = mw(node)
	}
	return node
}
