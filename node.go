package anchor

import (
	"context"
	"fmt"
)

// Node is a single processing step. Process takes ownership of input and
// either returns an output or an error, never both. A Node may be shared
// between chains and must therefore be safe for concurrent use.
type Node[In, Out any] interface {
	Process(ctx context.Context, input In) (Out, error)
}

// NodeFunc adapts a plain function into a Node.
type NodeFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Process calls f(ctx, input).
func (f NodeFunc[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// Func creates a named node from fn.
func Func[In, Out any](name string, fn func(ctx context.Context, input In) (Out, error)) Node[In, Out] {
	return WithName[In, Out](name, NodeFunc[In, Out](fn))
}

// Named is implemented by nodes that carry a stable name. Names show up in
// stage errors, traces and log lines.
type Named interface {
	Name() string
}

type namedNode[In, Out any] struct {
	name string
	node Node[In, Out]
}

// WithName attaches a name to node.
func WithName[In, Out any](name string, node Node[In, Out]) Node[In, Out] {
	return &namedNode[In, Out]{name: name, node: node}
}

func (n *namedNode[In, Out]) Name() string { return n.name }

func (n *namedNode[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	return n.node.Process(ctx, input)
}

// SetState forwards shared state to the wrapped node.
func (n *namedNode[In, Out]) SetState(state *StateManager) {
	if s, ok := n.node.(Stateful); ok {
		s.SetState(state)
	}
}

// Passthrough returns its input unchanged. It is useful as the head of a
// chain that only needs the stages after it, or as a placeholder sibling.
type Passthrough[T any] struct{}

// Name implements Named.
func (Passthrough[T]) Name() string { return "passthrough" }

// Process returns input.
func (Passthrough[T]) Process(_ context.Context, input T) (T, error) {
	return input, nil
}

// Cloner is implemented by inputs that must not be shared between nodes
// receiving the same value, such as the siblings of a ParallelNode or the
// alternatives of a fallback. Clone returns an independent copy.
type Cloner[T any] interface {
	Clone() T
}

// Clone returns v.Clone() when v implements Cloner, otherwise v itself.
func Clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

// NameOf returns the name of node, falling back to its type.
func NameOf(node any) string {
	if n, ok := node.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", node)
}
