package nodes

import (
	"context"
	"fmt"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/log"
)

// Logger logs "prefix: input" at info level and passes the input through.
type Logger[T any] struct {
	prefix string
	logger anchor.Logger
}

// NewLogger creates a logging node. A nil logger uses log.Default.
func NewLogger[T any](prefix string, logger anchor.Logger) *Logger[T] {
	if logger == nil {
		logger = log.Default
	}
	return &Logger[T]{prefix: prefix, logger: logger}
}

// Name implements anchor.Named.
func (n *Logger[T]) Name() string { return "logger" }

// Process logs input and returns it unchanged.
func (n *Logger[T]) Process(ctx context.Context, input T) (T, error) {
	n.logger.Info(ctx, fmt.Sprintf("%s: %v", n.prefix, input))
	return input, nil
}
