package nodes

import (
	"context"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentstation/anchor"
)

// JSONPath extracts data with a JSONPath expression. String input is
// parsed as JSON first; any other input is queried as is.
type JSONPath struct {
	path     string
	expr     jp.Expr
	multiple bool
	def      any
	unwrap   bool
}

// JSONPathOption configures a JSONPath node.
type JSONPathOption func(*JSONPath)

// WithMultiple returns every match as a slice instead of the first one.
func WithMultiple() JSONPathOption {
	return func(n *JSONPath) {
		n.multiple = true
	}
}

// WithDefault returns v when nothing matches.
func WithDefault(v any) JSONPathOption {
	return func(n *JSONPath) {
		n.def = v
	}
}

// WithUnwrap controls whether a single-element array match is unwrapped.
// Unwrapping is on by default.
func WithUnwrap(unwrap bool) JSONPathOption {
	return func(n *JSONPath) {
		n.unwrap = unwrap
	}
}

// NewJSONPath parses path.
func NewJSONPath(path string, opts ...JSONPathOption) (*JSONPath, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, anchor.Errorf(anchor.KindInvalidInput, "jsonpath %q: %w", path, err)
	}
	n := &JSONPath{path: path, expr: expr, unwrap: true}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Name implements anchor.Named.
func (n *JSONPath) Name() string { return "jsonpath" }

// Process evaluates the expression against input.
func (n *JSONPath) Process(_ context.Context, input any) (any, error) {
	if s, ok := input.(string); ok {
		parsed, err := oj.ParseString(s)
		if err != nil {
			return nil, anchor.WrapError(anchor.KindParse, err)
		}
		input = parsed
	}

	results := n.expr.Get(input)
	if len(results) == 0 {
		if n.def != nil {
			return n.def, nil
		}
		if n.multiple {
			return []any{}, nil
		}
		return nil, nil
	}
	if n.multiple {
		return results, nil
	}

	result := results[0]
	if n.unwrap {
		if arr, ok := result.([]any); ok && len(arr) == 1 {
			result = arr[0]
		}
	}
	return result, nil
}
