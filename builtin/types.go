package builtin

// NodeMetadata describes a stage type.
type NodeMetadata struct {
	Type         string         `json:"type" yaml:"type"`
	Category     string         `json:"category" yaml:"category"`
	Description  string         `json:"description" yaml:"description"`
	Input        string         `json:"input" yaml:"input"`
	Output       string         `json:"output" yaml:"output"`
	ConfigSchema map[string]any `json:"configSchema,omitempty" yaml:"configSchema,omitempty"`
	Examples     []Example      `json:"examples,omitempty" yaml:"examples,omitempty"`
	Since        string         `json:"since,omitempty" yaml:"since,omitempty"`
}

// Example shows how to use a stage type.
type Example struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Input       any            `json:"input,omitempty" yaml:"input,omitempty"`
	Output      any            `json:"output,omitempty" yaml:"output,omitempty"`
}
