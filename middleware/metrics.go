package middleware

import (
	"context"
	"time"

	"github.com/agentstation/anchor"
)

// MetricsCollector collects node execution metrics.
type MetricsCollector interface {
	RecordStart(node string)
	RecordEnd(node string, duration time.Duration, err error)
}

// Metrics reports every call to collector.
func Metrics[In, Out any](collector MetricsCollector) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		name := anchor.NameOf(node)
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			collector.RecordStart(name)
			start := time.Now()
			out, err := node.Process(ctx, input)
			collector.RecordEnd(name, time.Since(start), err)
			return out, err
		})
	}
}
