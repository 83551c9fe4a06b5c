package yaml

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// Parser reads YAML chain definitions. Unknown fields are rejected.
type Parser struct {
	strict bool
}

// NewParser creates a new YAML parser.
func NewParser() *Parser {
	return &Parser{strict: true}
}

// NewLenientParser creates a parser that ignores unknown fields.
func NewLenientParser() *Parser {
	return &Parser{}
}

// Parse reads, parses and validates a YAML chain definition from a reader.
func (p *Parser) Parse(r io.Reader) (*ChainDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	var opts []yaml.DecodeOption
	if p.strict {
		opts = append(opts, yaml.DisallowUnknownField())
	}

	var def ChainDefinition
	if err := yaml.UnmarshalWithOptions(data, &def, opts...); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain definition: %w", err)
	}
	return &def, nil
}

// ParseFile reads and parses a YAML chain definition from a file.
func (p *Parser) ParseFile(filename string) (*ChainDefinition, error) {
	// #nosec G304 - callers choose which definition to load
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return p.Parse(file)
}

// ParseString parses a YAML chain definition from a string.
func (p *Parser) ParseString(s string) (*ChainDefinition, error) {
	return p.Parse(bytes.NewReader([]byte(s)))
}

// Marshal converts a chain definition to YAML format.
func (p *Parser) Marshal(def *ChainDefinition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	return data, nil
}

// MarshalToFile writes a chain definition to a YAML file.
func (p *Parser) MarshalToFile(def *ChainDefinition, filename string) error {
	data, err := p.Marshal(def)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0o600)
}

// Example returns a sample chain definition.
func Example() string {
	return `name: summarize
description: Render a prompt, ask two models and join their answers
trace: true

stages:
  - name: render
    type: prompt
    config:
      template: "Summarize in one sentence: {{.input}}"

  - name: ask
    type: parallel
    combine: join
    config:
      separator: "\n---\n"
    branches:
      - name: fast
        stages:
          - type: openai
            config:
              model: gpt-4o-mini
      - name: careful
        stages:
          - type: openai
            config:
              model: gpt-4o
              system: "Answer carefully."
            retry:
              max_attempts: 3
              delay: 1s
              multiplier: 2
            timeout: 30s

  - name: trim
    type: trim
`
}
