package middleware

import (
	"context"
	"time"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/internal/cache"
)

// Cache memoizes successful outputs by input. At most maxEntries results
// are kept, least recently used first out; a positive ttl expires them.
// Failures are never cached.
func Cache[In comparable, Out any](maxEntries int, ttl time.Duration) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		c := cache.New[In, Out](cache.WithMaxEntries(maxEntries), cache.WithTTL(ttl))
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			if out, ok := c.Get(input); ok {
				return out, nil
			}
			out, err := node.Process(ctx, input)
			if err != nil {
				return out, err
			}
			c.Set(input, out)
			return out, nil
		})
	}
}
