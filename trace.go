package anchor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentstation/anchor/internal/runid"
)

// TraceNode observes a node without altering its input, output or error.
// Every call produces a span and a log line with the elapsed time.
type TraceNode[In, Out any] struct {
	name   string
	node   Node[In, Out]
	tracer trace.Tracer
	logger Logger
}

// NewTraceNode wraps node. A nil tracer uses the global tracer provider and
// a nil logger discards log lines.
func NewTraceNode[In, Out any](name string, node Node[In, Out], tracer trace.Tracer, logger Logger) *TraceNode[In, Out] {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	if logger == nil {
		logger = NopLogger{}
	}
	return &TraceNode[In, Out]{name: name, node: node, tracer: tracer, logger: logger}
}

// Name implements Named.
func (t *TraceNode[In, Out]) Name() string { return t.name }

// SetState forwards shared state to the wrapped node.
func (t *TraceNode[In, Out]) SetState(state *StateManager) {
	if s, ok := t.node.(Stateful); ok {
		s.SetState(state)
	}
}

// Process runs the wrapped node inside a span.
func (t *TraceNode[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	attrs := []attribute.KeyValue{attribute.String("anchor.stage", t.name)}
	if id := runid.From(ctx); id != "" {
		attrs = append(attrs, attribute.String("anchor.run_id", id))
	}
	ctx, span := t.tracer.Start(ctx, "anchor.stage "+t.name, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	out, err := t.node.Process(ctx, input)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int64("anchor.duration_ms", elapsed.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Error(ctx, "stage failed", "stage", t.name, "duration", elapsed, "error", err)
		return out, err
	}
	t.logger.Debug(ctx, "stage completed", "stage", t.name, "duration", elapsed)
	return out, nil
}

// RunID returns the identifier of the traced chain run carried by ctx, or
// an empty string outside a traced run.
func RunID(ctx context.Context) string {
	return runid.From(ctx)
}
