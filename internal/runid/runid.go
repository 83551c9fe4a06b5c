// Package runid carries the identifier of a chain run through a context.
package runid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// With returns a context carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// Ensure returns ctx unchanged when it already carries a run id, otherwise a
// child context with a fresh one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := From(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return With(ctx, id), id
}

// From extracts the run id, or "" when none is set.
func From(ctx context.Context) string {
	id, _ := ctx.Value(key{}).(string)
	return id
}
