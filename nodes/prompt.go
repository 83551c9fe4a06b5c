package nodes

import (
	"context"
	"strings"
	"text/template"

	"github.com/agentstation/anchor"
)

// Prompt renders a text/template over a map of variables. Referencing a
// variable that is not in the map is an error.
type Prompt struct {
	tmpl *template.Template
}

// NewPrompt parses text. A parse failure is reported as KindTemplate.
func NewPrompt(text string) (*Prompt, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, anchor.WrapError(anchor.KindTemplate, err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// MustPrompt is like NewPrompt but panics on a parse failure.
func MustPrompt(text string) *Prompt {
	p, err := NewPrompt(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Name implements anchor.Named.
func (p *Prompt) Name() string { return "prompt" }

// Process renders the template with vars.
func (p *Prompt) Process(_ context.Context, vars map[string]any) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, vars); err != nil {
		return "", anchor.WrapError(anchor.KindTemplate, err)
	}
	return b.String(), nil
}

// TextPrompt renders a template over a single string bound to .input.
type TextPrompt struct {
	prompt *Prompt
}

// NewTextPrompt parses text.
func NewTextPrompt(text string) (*TextPrompt, error) {
	p, err := NewPrompt(text)
	if err != nil {
		return nil, err
	}
	return &TextPrompt{prompt: p}, nil
}

// Name implements anchor.Named.
func (p *TextPrompt) Name() string { return "prompt" }

// Process renders the template with input.
func (p *TextPrompt) Process(ctx context.Context, input string) (string, error) {
	return p.prompt.Process(ctx, map[string]any{"input": input})
}
