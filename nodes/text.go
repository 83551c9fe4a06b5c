package nodes

import (
	"context"
	"strings"

	"github.com/agentstation/anchor"
)

// Upper upper-cases its input.
func Upper() anchor.Node[string, string] {
	return anchor.Func("upper", func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})
}

// Lower lower-cases its input.
func Lower() anchor.Node[string, string] {
	return anchor.Func("lower", func(_ context.Context, s string) (string, error) {
		return strings.ToLower(s), nil
	})
}

// Append appends suffix to its input.
func Append(suffix string) anchor.Node[string, string] {
	return anchor.Func("append", func(_ context.Context, s string) (string, error) {
		return s + suffix, nil
	})
}

// Trim removes leading and trailing white space. An input that is empty
// after trimming is rejected.
func Trim() anchor.Node[string, string] {
	return anchor.Func("trim", func(_ context.Context, s string) (string, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", anchor.NewError(anchor.KindInvalidInput, "input is empty")
		}
		return s, nil
	})
}
