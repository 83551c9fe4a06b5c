package anchor

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Stage is a type-erased node used to assemble chains at runtime, for
// example from a YAML definition. It records the input and output types of
// the node it wraps so that a chain can be checked before it runs. A nil
// type means the stage accepts or produces anything.
type Stage struct {
	name    string
	inType  reflect.Type
	outType reflect.Type
	node    Node[any, any]
}

// Erase wraps a typed node into a Stage.
func Erase[In, Out any](name string, node Node[In, Out]) Stage {
	return Stage{
		name:    name,
		inType:  staticType[In](),
		outType: staticType[Out](),
		node:    &erased[In, Out]{name: name, node: node},
	}
}

// Name implements Named.
func (s Stage) Name() string { return s.name }

// InputType returns the type accepted by the stage, or nil.
func (s Stage) InputType() reflect.Type { return s.inType }

// OutputType returns the type produced by the stage, or nil.
func (s Stage) OutputType() reflect.Type { return s.outType }

// Process runs the wrapped node.
func (s Stage) Process(ctx context.Context, input any) (any, error) {
	return s.node.Process(ctx, input)
}

// SetState forwards shared state to the wrapped node.
func (s Stage) SetState(state *StateManager) {
	if st, ok := s.node.(Stateful); ok {
		st.SetState(state)
	}
}

// Wrap returns a copy of the stage whose node is replaced by fn(node). The
// recorded input and output types are kept, so fn must not change them.
func (s Stage) Wrap(fn func(Node[any, any]) Node[any, any]) Stage {
	s.node = fn(s.node)
	return s
}

// staticType returns the reflect type of T, or nil when T is the empty
// interface.
func staticType[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return nil
	}
	return t
}

type erased[In, Out any] struct {
	name string
	node Node[In, Out]
}

func (e *erased[In, Out]) Name() string { return e.name }

func (e *erased[In, Out]) Process(ctx context.Context, input any) (any, error) {
	in, ok := assertInput[In](input)
	if !ok {
		var zero In
		return nil, Errorf(KindInvalidInput, "stage %q expects %T, got %T", e.name, zero, input)
	}
	return e.node.Process(ctx, in)
}

func (e *erased[In, Out]) SetState(state *StateManager) {
	if s, ok := e.node.(Stateful); ok {
		s.SetState(state)
	}
}

func assertInput[In any](input any) (In, bool) {
	if v, ok := input.(In); ok {
		return v, true
	}
	var zero In
	if input != nil {
		return zero, false
	}
	switch reflect.TypeOf((*In)(nil)).Elem().Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return zero, true
	default:
		return zero, false
	}
}

// DynamicBuilder assembles a chain of Stages. Like Builder it is immutable.
type DynamicBuilder struct {
	stages []Stage
	opts   []Option
}

// NewDynamicBuilder starts a dynamic chain with first.
func NewDynamicBuilder(first Stage, opts ...Option) *DynamicBuilder {
	return &DynamicBuilder{stages: []Stage{first}, opts: slices.Clone(opts)}
}

// Then returns a builder with next appended.
func (b *DynamicBuilder) Then(next Stage) *DynamicBuilder {
	return &DynamicBuilder{
		stages: append(slices.Clone(b.stages), next),
		opts:   b.opts,
	}
}

// Build checks that adjacent stages compose and finalizes the chain.
func (b *DynamicBuilder) Build() (*Chain[any, any], error) {
	return Dynamic(b.stages, b.opts...)
}

// Dynamic builds a chain from stages after checking that adjacent stages
// compose.
func Dynamic(stages []Stage, opts ...Option) (*Chain[any, any], error) {
	if len(stages) == 0 {
		return nil, ErrEmptyChain
	}
	for i, s := range stages {
		if s.node == nil {
			return nil, fmt.Errorf("%w: stage %d has no node", ErrEmptyChain, i)
		}
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}

	b := NewBuilder[any, any](stages[0], opts...)
	for _, s := range stages[1:] {
		b = Then[any, any, any](b, s)
	}
	return b.Build(), nil
}

// ValidateStages reports the first pair of adjacent stages whose types do
// not compose. Stages with a nil type are skipped.
func ValidateStages(stages []Stage) error {
	for i := 1; i < len(stages); i++ {
		prev, next := stages[i-1], stages[i]
		if prev.outType == nil || next.inType == nil {
			continue
		}
		if !isTypeCompatible(prev.outType, next.inType) {
			return fmt.Errorf("%w: stage %d %q outputs %v but stage %d %q expects %v",
				ErrTypeMismatch, i-1, prev.name, prev.outType, i, next.name, next.inType)
		}
	}
	return nil
}

// isTypeCompatible reports whether a value of type out can be handed to a
// stage expecting in.
func isTypeCompatible(out, in reflect.Type) bool {
	if out == in {
		return true
	}
	if in.Kind() == reflect.Interface {
		return out.Implements(in)
	}
	// An interface output may hold a value of the expected concrete type;
	// the runtime assertion in the stage decides.
	if out.Kind() == reflect.Interface {
		return in.Implements(out)
	}
	return out.AssignableTo(in)
}
