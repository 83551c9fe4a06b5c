package anchor

import "context"

// Link composes two nodes. Output of Node becomes input of Next; when Node
// fails, Next is never invoked and the error is returned unchanged.
type Link[In, Mid, Out any] struct {
	Node Node[In, Mid]
	Next Node[Mid, Out]
}

// NewLink creates a link. It performs no work.
func NewLink[In, Mid, Out any](node Node[In, Mid], next Node[Mid, Out]) *Link[In, Mid, Out] {
	return &Link[In, Mid, Out]{Node: node, Next: next}
}

// Process runs Node then Next.
func (l *Link[In, Mid, Out]) Process(ctx context.Context, input In) (Out, error) {
	mid, err := l.Node.Process(ctx, input)
	if err != nil {
		var zero Out
		return zero, err
	}
	return l.Next.Process(ctx, mid)
}
