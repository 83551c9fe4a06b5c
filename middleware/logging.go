package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/anchor"
)

// Logging logs the start and outcome of every call.
func Logging[In, Out any](logger anchor.Logger) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		name := anchor.NameOf(node)
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			logger.Debug(ctx, "node starting", "node", name, "input_type", fmt.Sprintf("%T", input))
			start := time.Now()

			out, err := node.Process(ctx, input)
			if err != nil {
				logger.Error(ctx, "node failed",
					"node", name,
					"duration", time.Since(start),
					"error", err)
				return out, err
			}
			logger.Info(ctx, "node completed",
				"node", name,
				"duration", time.Since(start))
			return out, nil
		})
	}
}
