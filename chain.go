package anchor

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentstation/anchor/internal/runid"
)

const instrumentationName = "github.com/agentstation/anchor"

// options holds configuration shared by a builder and the chain it builds.
type options struct {
	name   string
	logger Logger
	trace  bool
	tracer trace.Tracer
	state  *StateManager
}

// Option configures a Builder.
type Option func(*options)

// WithChainName names the chain. The name is used by traces and by stage
// errors when the chain is nested inside another chain.
func WithChainName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used for chain and stage events.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTrace wraps every stage in a TraceNode.
func WithTrace() Option {
	return func(o *options) {
		o.trace = true
	}
}

// WithTracer wraps every stage in a TraceNode reporting to tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.trace = true
		o.tracer = tracer
	}
}

// WithState hands state to every stage implementing Stateful.
func WithState(state *StateManager) Option {
	return func(o *options) {
		o.state = state
	}
}

func newOptions(opts []Option) *options {
	o := &options{name: "chain", logger: NopLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = NopLogger{}
	}
	return o
}

func (o *options) tracerOrGlobal() trace.Tracer {
	if o.tracer != nil {
		return o.tracer
	}
	return otel.Tracer(instrumentationName)
}

// Builder assembles a chain one stage at a time. A Builder is immutable:
// Then returns a new builder and leaves its argument usable, so one prefix
// can be extended in several directions.
type Builder[In, Out any] struct {
	head   Node[In, Out]
	stages []string
	nodes  []any
	opts   *options
}

// NewBuilder starts a chain whose first stage is first.
func NewBuilder[In, Out any](first Node[In, Out], opts ...Option) *Builder[In, Out] {
	o := newOptions(opts)
	return &Builder[In, Out]{
		head:   wrapStage(first, 0, o),
		stages: []string{NameOf(first)},
		nodes:  []any{first},
		opts:   o,
	}
}

// NewTracedBuilder starts a chain whose stages are all traced.
func NewTracedBuilder[In, Out any](first Node[In, Out], opts ...Option) *Builder[In, Out] {
	return NewBuilder(first, append(slices.Clone(opts), WithTrace())...)
}

// Then appends next to the chain built so far. The output type of b must
// match the input type of next; the compiler enforces it.
func Then[In, Mid, Out any](b *Builder[In, Mid], next Node[Mid, Out]) *Builder[In, Out] {
	index := len(b.stages)
	return &Builder[In, Out]{
		head:   NewLink(b.head, wrapStage(next, index, b.opts)),
		stages: append(slices.Clone(b.stages), NameOf(next)),
		nodes:  append(slices.Clone(b.nodes), next),
		opts:   b.opts,
	}
}

// Build finalizes the chain. Building twice yields two chains over the same
// nodes.
func (b *Builder[In, Out]) Build() *Chain[In, Out] {
	return &Chain[In, Out]{
		head:   b.head,
		stages: slices.Clone(b.stages),
		nodes:  slices.Clone(b.nodes),
		state:  b.opts.state,
		opts:   b.opts,
	}
}

func wrapStage[In, Out any](node Node[In, Out], index int, o *options) Node[In, Out] {
	if o.state != nil {
		if s, ok := node.(Stateful); ok {
			s.SetState(o.state)
		}
	}
	name := NameOf(node)
	inner := node
	if o.trace {
		inner = NewTraceNode(name, node, o.tracerOrGlobal(), o.logger)
	}
	return &stage[In, Out]{index: index, name: name, node: inner}
}

// stage tags failures with the position of the node in its chain.
type stage[In, Out any] struct {
	index int
	name  string
	node  Node[In, Out]
}

func (s *stage[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	out, err := s.node.Process(ctx, input)
	if err != nil {
		return out, &StageError{Index: s.index, Name: s.name, Err: Normalize(err)}
	}
	return out, nil
}

// Chain is a finalized sequence of stages. It is itself a Node and can be
// nested in other chains or parallel nodes.
type Chain[In, Out any] struct {
	head   Node[In, Out]
	stages []string
	nodes  []any
	state  *StateManager
	opts   *options
}

// Name returns the chain name.
func (c *Chain[In, Out]) Name() string { return c.opts.name }

// Stages returns the stage names in execution order.
func (c *Chain[In, Out]) Stages() []string { return slices.Clone(c.stages) }

// State returns the shared state of the chain, if any.
func (c *Chain[In, Out]) State() *StateManager { return c.state }

// SetState hands state to every stage implementing Stateful, so a chain
// nested in another chain or in a ParallelNode shares the outer state.
func (c *Chain[In, Out]) SetState(state *StateManager) {
	c.state = state
	for _, node := range c.nodes {
		if s, ok := node.(Stateful); ok {
			s.SetState(state)
		}
	}
}

// String describes the chain.
func (c *Chain[In, Out]) String() string {
	return c.opts.name + "(" + strings.Join(c.stages, " -> ") + ")"
}

// Process runs each stage in order, stopping at the first failure. The
// returned error is a *StageError wrapping an *Error.
func (c *Chain[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	if !c.opts.trace {
		out, err := c.head.Process(ctx, input)
		if err != nil {
			c.opts.logger.Error(ctx, "chain failed", "chain", c.opts.name, "error", err)
		}
		return out, err
	}

	ctx, id := runid.Ensure(ctx)
	ctx, span := c.opts.tracerOrGlobal().Start(ctx, "anchor.chain "+c.opts.name,
		trace.WithAttributes(
			attribute.String("anchor.chain", c.opts.name),
			attribute.String("anchor.run_id", id),
			attribute.Int("anchor.stages", len(c.stages)),
		))
	defer span.End()

	c.opts.logger.Debug(ctx, "chain started", "chain", c.opts.name, "run_id", id)
	out, err := c.head.Process(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.opts.logger.Error(ctx, "chain failed", "chain", c.opts.name, "run_id", id, "error", err)
		return out, err
	}
	c.opts.logger.Debug(ctx, "chain completed", "chain", c.opts.name, "run_id", id)
	return out, nil
}
