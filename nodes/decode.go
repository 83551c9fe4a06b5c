package nodes

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agentstation/anchor"
)

// Decode parses a JSON document, typically a model response, into T.
// Markdown code fences around the document are ignored.
type Decode[T any] struct{}

// Name implements anchor.Named.
func (Decode[T]) Name() string { return "decode" }

// Process decodes input.
func (Decode[T]) Process(_ context.Context, input string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(stripFence(input)), &out); err != nil {
		return out, anchor.WrapError(anchor.KindParse, err)
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
