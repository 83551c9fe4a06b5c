package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/anchor"
)

// Timing records execution statistics for a node into state under the keys
// node:<name>:last_duration, total_duration, execution_count and
// avg_duration.
func Timing[In, Out any](state *anchor.StateManager) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		name := anchor.NameOf(node)
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			start := time.Now()
			out, err := node.Process(ctx, input)
			saveTimingMetrics(ctx, state, name, time.Since(start))
			return out, err
		})
	}
}

func saveTimingMetrics(ctx context.Context, state *anchor.StateManager, name string, d time.Duration) {
	key := func(metric string) string { return fmt.Sprintf("node:%s:%s", name, metric) }
	durations := anchor.NewTypedState[time.Duration](state)
	counts := anchor.NewTypedState[int64](state)

	total, _, _ := durations.Get(ctx, key("total_duration"))
	count, _, _ := counts.Get(ctx, key("execution_count"))
	total += d
	count++

	durations.Set(ctx, key("last_duration"), d)
	durations.Set(ctx, key("total_duration"), total)
	counts.Set(ctx, key("execution_count"), count)
	durations.Set(ctx, key("avg_duration"), total/time.Duration(count))
}
