package nodes

import (
	"context"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/agentstation/anchor"
)

// Validate checks its input against a JSON schema and passes valid input
// through unchanged. Invalid input is reported as KindInvalidInput.
type Validate struct {
	schema *gojsonschema.Schema
}

// NewValidate compiles schema, given as a Go value (typically a map) or as
// a JSON string.
func NewValidate(schema any) (*Validate, error) {
	var loader gojsonschema.JSONLoader
	if s, ok := schema.(string); ok {
		loader = gojsonschema.NewStringLoader(s)
	} else {
		loader = gojsonschema.NewGoLoader(schema)
	}
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, anchor.Errorf(anchor.KindInvalidInput, "invalid schema: %w", err)
	}
	return &Validate{schema: compiled}, nil
}

// Name implements anchor.Named.
func (v *Validate) Name() string { return "validate" }

// Process validates input.
func (v *Validate) Process(_ context.Context, input any) (any, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, anchor.Errorf(anchor.KindInvalidInput, "validate: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, anchor.NewError(anchor.KindInvalidInput, strings.Join(msgs, "; "))
	}
	return input, nil
}
