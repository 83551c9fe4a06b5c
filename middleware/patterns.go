package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/internal/retry"
)

// RetryPolicy configures Retry.
type RetryPolicy = retry.Policy

// Exponential returns an exponential backoff policy with maxAttempts retries.
func Exponential(maxAttempts int) RetryPolicy {
	return retry.Exponential(maxAttempts)
}

// Linear returns a fixed-delay policy with maxAttempts retries.
func Linear(maxAttempts int, delay time.Duration) RetryPolicy {
	return retry.Linear(maxAttempts, delay)
}

// Retryable reports whether err is worth another attempt. Malformed input,
// unparseable responses, template failures and cancellation are final.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	kind, ok := anchor.KindOf(err)
	if !ok {
		return true
	}
	switch kind {
	case anchor.KindInvalidInput, anchor.KindParse, anchor.KindTemplate:
		return false
	default:
		return true
	}
}

// Retry re-runs a failing node under policy. When the policy has no
// classifier, Retryable is used.
func Retry[In, Out any](policy RetryPolicy) Middleware[In, Out] {
	if policy.IsRetryable == nil {
		policy.IsRetryable = Retryable
	}
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			var out Out
			err := policy.Do(ctx, func(ctx context.Context) error {
				var err error
				out, err = node.Process(ctx, input)
				return err
			})
			return out, err
		})
	}
}

// Timeout bounds a single call to duration. A call that overruns is
// reported as KindModel wrapping context.DeadlineExceeded.
func Timeout[In, Out any](duration time.Duration) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		name := anchor.NameOf(node)
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()

			type result struct {
				out Out
				err error
			}
			done := make(chan result, 1)
			go func() {
				out, err := node.Process(timeoutCtx, input)
				done <- result{out, err}
			}()

			var zero Out
			select {
			case r := <-done:
				if r.err == nil || ctx.Err() != nil || !errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
					return r.out, r.err
				}
			case <-timeoutCtx.Done():
				if ctx.Err() != nil {
					return zero, ctx.Err()
				}
			}
			return zero, anchor.Errorf(anchor.KindModel, "node %s timed out after %v: %w",
				name, duration, context.DeadlineExceeded)
		})
	}
}

// Validation checks input before and output after the node runs. Either
// function may be nil. A failing check is reported as KindInvalidInput.
func Validation[In, Out any](validateInput func(In) error, validateOutput func(Out) error) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			var zero Out
			if validateInput != nil {
				if err := validateInput(input); err != nil {
					return zero, anchor.Errorf(anchor.KindInvalidInput, "input: %w", err)
				}
			}
			out, err := node.Process(ctx, input)
			if err != nil {
				return out, err
			}
			if validateOutput != nil {
				if err := validateOutput(out); err != nil {
					return zero, anchor.Errorf(anchor.KindInvalidInput, "output: %w", err)
				}
			}
			return out, nil
		})
	}
}

// ErrorHandler passes every failure through handler, which may replace or
// clear it.
func ErrorHandler[In, Out any](handler func(error) error) Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		return wrap(node, func(ctx context.Context, input In) (Out, error) {
			out, err := node.Process(ctx, input)
			if err != nil {
				return out, handler(err)
			}
			return out, nil
		})
	}
}

// Recover turns a panic inside the node into a KindModel error.
func Recover[In, Out any]() Middleware[In, Out] {
	return func(node anchor.Node[In, Out]) anchor.Node[In, Out] {
		name := anchor.NameOf(node)
		return wrap(node, func(ctx context.Context, input In) (out Out, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = anchor.NewError(anchor.KindModel, fmt.Sprintf("node %s panicked: %v", name, r))
				}
			}()
			return node.Process(ctx, input)
		})
	}
}
