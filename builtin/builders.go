package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/models/openai"
	"github.com/agentstation/anchor/nodes"
	"github.com/agentstation/anchor/yaml"
)

// stageBuilder pairs metadata with a build function.
type stageBuilder struct {
	meta  NodeMetadata
	build func(def *yaml.StageDefinition, reg *Registry) (anchor.Stage, error)
}

// Metadata returns the stage metadata.
func (b *stageBuilder) Metadata() NodeMetadata { return b.meta }

// Build creates a stage from a definition.
func (b *stageBuilder) Build(def *yaml.StageDefinition, reg *Registry) (anchor.Stage, error) {
	return b.build(def, reg)
}

func schema(required []string, props map[string]any) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func noConfig() map[string]any { return schema(nil, map[string]any{}) }

func passthroughBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:         "passthrough",
			Category:     "core",
			Description:  "Returns its input unchanged",
			Input:        "any",
			Output:       "any",
			ConfigSchema: noConfig(),
			Since:        "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			return anchor.Erase[any, any](def.StageName(), anchor.Passthrough[any]{}), nil
		},
	}
}

func loggerBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        "logger",
			Category:    "core",
			Description: "Logs \"prefix: input\" at info level and passes the input through",
			Input:       "any",
			Output:      "any",
			ConfigSchema: schema(nil, map[string]any{
				"prefix": map[string]any{
					"type":        "string",
					"description": "Log prefix, defaults to the stage name",
				},
			}),
			Examples: []Example{{
				Name:        "Trace a value",
				Description: "Log the rendered prompt",
				Config:      map[string]any{"prefix": "prompt"},
				Input:       "hello",
				Output:      "hello",
			}},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, reg *Registry) (anchor.Stage, error) {
			prefix := stringConfig(def.Config, "prefix", def.StageName())
			return anchor.Erase[any, any](def.StageName(), nodes.NewLogger[any](prefix, reg.Logger())), nil
		},
	}
}

func promptBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        "prompt",
			Category:    "text",
			Description: "Renders a Go template. Map input provides the variables, any other input is bound to .input",
			Input:       "any",
			Output:      "string",
			ConfigSchema: schema([]string{"template"}, map[string]any{
				"template": map[string]any{
					"type":        "string",
					"description": "text/template source",
				},
			}),
			Examples: []Example{
				{
					Name:        "Wrap input",
					Description: "Bind a string input",
					Config:      map[string]any{"template": "Translate to French: {{.input}}"},
					Input:       "good morning",
					Output:      "Translate to French: good morning",
				},
				{
					Name:        "Map variables",
					Description: "Render from a map",
					Config:      map[string]any{"template": "Hello {{.name}}"},
					Input:       map[string]any{"name": "Ada"},
					Output:      "Hello Ada",
				},
			},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			prompt, err := nodes.NewPrompt(stringConfig(def.Config, "template", ""))
			if err != nil {
				return anchor.Stage{}, err
			}
			node := anchor.Func(def.StageName(), func(ctx context.Context, input any) (string, error) {
				vars, ok := input.(map[string]any)
				if !ok {
					vars = map[string]any{"input": input}
				}
				return prompt.Process(ctx, vars)
			})
			return anchor.Erase(def.StageName(), node), nil
		},
	}
}

func textBuilder(typ, description string, node func(cfg map[string]any) anchor.Node[string, string], cfgSchema map[string]any, ex Example) NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:         typ,
			Category:     "text",
			Description:  description,
			Input:        "string",
			Output:       "string",
			ConfigSchema: cfgSchema,
			Examples:     []Example{ex},
			Since:        "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			return anchor.Erase(def.StageName(), node(def.Config)), nil
		},
	}
}

func upperBuilder() NodeBuilder {
	return textBuilder("upper", "Converts text to upper case",
		func(map[string]any) anchor.Node[string, string] { return nodes.Upper() },
		noConfig(),
		Example{Name: "Shout", Description: "Upper-case the input", Input: "hello", Output: "HELLO"})
}

func lowerBuilder() NodeBuilder {
	return textBuilder("lower", "Converts text to lower case",
		func(map[string]any) anchor.Node[string, string] { return nodes.Lower() },
		noConfig(),
		Example{Name: "Whisper", Description: "Lower-case the input", Input: "HELLO", Output: "hello"})
}

func trimBuilder() NodeBuilder {
	return textBuilder("trim", "Trims surrounding whitespace and rejects blank text",
		func(map[string]any) anchor.Node[string, string] { return nodes.Trim() },
		noConfig(),
		Example{Name: "Clean model output", Description: "Drop trailing newlines", Input: " answer\n", Output: "answer"})
}

func appendBuilder() NodeBuilder {
	return textBuilder("append", "Appends a suffix to the text",
		func(cfg map[string]any) anchor.Node[string, string] {
			return nodes.Append(stringConfig(cfg, "suffix", ""))
		},
		schema([]string{"suffix"}, map[string]any{
			"suffix": map[string]any{"type": "string", "description": "Text to append"},
		}),
		Example{Name: "Exclaim", Description: "Add an exclamation mark", Config: map[string]any{"suffix": "!"}, Input: "hi", Output: "hi!"})
}

func jsonBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:         "json",
			Category:     "data",
			Description:  "Decodes JSON text, tolerating a surrounding Markdown code fence",
			Input:        "string",
			Output:       "any",
			ConfigSchema: noConfig(),
			Examples: []Example{{
				Name:        "Model reply",
				Description: "Decode a fenced JSON answer",
				Input:       "```json\n{\"ok\": true}\n```",
				Output:      map[string]any{"ok": true},
			}},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			return anchor.Erase[string, any](def.StageName(), nodes.Decode[any]{}), nil
		},
	}
}

func jsonPathBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        "jsonpath",
			Category:    "data",
			Description: "Extracts data using a JSONPath expression. String input is parsed as JSON first",
			Input:       "any",
			Output:      "any",
			ConfigSchema: schema([]string{"path"}, map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "JSONPath expression to extract data",
				},
				"multiple": map[string]any{
					"type":        "boolean",
					"default":     false,
					"description": "Return all matches as array (true) or first match only (false)",
				},
				"default": map[string]any{
					"description": "Default value if path not found",
				},
				"unwrap": map[string]any{
					"type":        "boolean",
					"default":     true,
					"description": "Unwrap single-element arrays",
				},
			}),
			Examples: []Example{
				{
					Name:        "Extract user name",
					Description: "Get user name from nested object",
					Config:      map[string]any{"path": "$.user.name"},
					Input:       map[string]any{"user": map[string]any{"name": "Alice", "age": 30}},
					Output:      "Alice",
				},
				{
					Name:        "Extract with default",
					Description: "Use default value when path not found",
					Config:      map[string]any{"path": "$.missing.field", "default": "Not found"},
					Input:       map[string]any{"other": "data"},
					Output:      "Not found",
				},
			},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			var opts []nodes.JSONPathOption
			if boolConfig(def.Config, "multiple", false) {
				opts = append(opts, nodes.WithMultiple())
			}
			if v, ok := def.Config["default"]; ok {
				opts = append(opts, nodes.WithDefault(v))
			}
			opts = append(opts, nodes.WithUnwrap(boolConfig(def.Config, "unwrap", true)))

			node, err := nodes.NewJSONPath(stringConfig(def.Config, "path", ""), opts...)
			if err != nil {
				return anchor.Stage{}, err
			}
			return anchor.Erase[any, any](def.StageName(), node), nil
		},
	}
}

func validateBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        "validate",
			Category:    "data",
			Description: "Validates the input against a JSON Schema and passes it through",
			Input:       "any",
			Output:      "any",
			ConfigSchema: schema([]string{"schema"}, map[string]any{
				"schema": map[string]any{
					"type":        "object",
					"description": "JSON Schema the input must satisfy",
				},
			}),
			Examples: []Example{{
				Name:        "Require an answer field",
				Description: "Reject model output without an answer",
				Config: map[string]any{"schema": map[string]any{
					"type":     "object",
					"required": []any{"answer"},
				}},
				Input:  map[string]any{"answer": "42"},
				Output: map[string]any{"answer": "42"},
			}},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			node, err := nodes.NewValidate(def.Config["schema"])
			if err != nil {
				return anchor.Stage{}, err
			}
			return anchor.Erase[any, any](def.StageName(), node), nil
		},
	}
}

func luaBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        "lua",
			Category:    "data",
			Description: "Runs a sandboxed Lua script defining exec(input)",
			Input:       "any",
			Output:      "any",
			ConfigSchema: schema([]string{"script"}, map[string]any{
				"script": map[string]any{
					"type":        "string",
					"description": "Lua source defining a global function exec(input)",
				},
			}),
			Examples: []Example{{
				Name:        "Word count",
				Description: "Count the words of a string",
				Config:      map[string]any{"script": "function exec(input) return #str_split(input, \" \") end"},
				Input:       "a b c",
				Output:      3,
			}},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, _ *Registry) (anchor.Stage, error) {
			node, err := nodes.NewLua(def.StageName(), stringConfig(def.Config, "script", ""))
			if err != nil {
				return anchor.Stage{}, err
			}
			return anchor.Erase[any, any](def.StageName(), node), nil
		},
	}
}

func openAIBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        "openai",
			Category:    "models",
			Description: "Sends the input as a user message to an OpenAI compatible chat model",
			Input:       "string",
			Output:      "string",
			ConfigSchema: schema(nil, map[string]any{
				"model":       map[string]any{"type": "string", "default": "gpt-4o-mini"},
				"system":      map[string]any{"type": "string", "description": "System prompt"},
				"base_url":    map[string]any{"type": "string", "description": "Endpoint of a compatible API"},
				"api_key_env": map[string]any{"type": "string", "default": "OPENAI_API_KEY"},
				"temperature": map[string]any{"type": "number", "minimum": 0, "maximum": 2},
				"max_tokens":  map[string]any{"type": "integer", "minimum": 1},
				"max_retries": map[string]any{"type": "integer", "minimum": 0},
			}),
			Examples: []Example{{
				Name:        "Local model",
				Description: "Talk to an OpenAI compatible server",
				Config: map[string]any{
					"model":    "llama3",
					"base_url": "http://localhost:11434/v1/",
				},
			}},
			Since: "1.0.0",
		},
		build: func(def *yaml.StageDefinition, reg *Registry) (anchor.Stage, error) {
			cfg := def.Config
			opts := []openai.Option{
				openai.WithName(def.StageName()),
				openai.WithLogger(reg.Logger()),
			}
			if key := os.Getenv(stringConfig(cfg, "api_key_env", "OPENAI_API_KEY")); key != "" {
				opts = append(opts, openai.WithAPIKey(key))
			}
			if url := stringConfig(cfg, "base_url", ""); url != "" {
				opts = append(opts, openai.WithBaseURL(url))
			}
			if system := stringConfig(cfg, "system", ""); system != "" {
				opts = append(opts, openai.WithSystemPrompt(system))
			}
			if t, ok := floatConfig(cfg, "temperature"); ok {
				opts = append(opts, openai.WithTemperature(t))
			}
			if n, ok := intConfig(cfg, "max_tokens"); ok {
				opts = append(opts, openai.WithMaxTokens(int64(n)))
			}
			if n, ok := intConfig(cfg, "max_retries"); ok {
				opts = append(opts, openai.WithMaxRetries(n))
			}

			chat := openai.New(stringConfig(cfg, "model", ""), opts...)
			return anchor.Erase[string, string](def.StageName(), chat), nil
		},
	}
}

// Combine strategies of the parallel stage.
const (
	CombineJoin  = "join"
	CombineList  = "list"
	CombineFirst = "first"
)

func parallelBuilder() NodeBuilder {
	return &stageBuilder{
		meta: NodeMetadata{
			Type:        yaml.ParallelType,
			Category:    "core",
			Description: "Runs every branch on the same input concurrently and combines the results in branch order",
			Input:       "any",
			Output:      "string for join, any otherwise",
			ConfigSchema: schema(nil, map[string]any{
				"separator": map[string]any{
					"type":        "string",
					"default":     "\n",
					"description": "Separator used by the join combiner",
				},
				"concurrency": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"description": "Maximum number of branches running at once",
				},
			}),
			Examples: []Example{{
				Name:        "Two views",
				Description: "Upper and lower case the input and join them",
				Config:      map[string]any{"separator": " | "},
				Input:       "Hi",
				Output:      "HI | hi",
			}},
			Since: "1.0.0",
		},
		build: buildParallel,
	}
}

func buildParallel(def *yaml.StageDefinition, reg *Registry) (anchor.Stage, error) {
	branches := make([]anchor.Node[any, any], 0, len(def.Branches))
	for i, b := range def.Branches {
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("branch %d", i)
		}
		stages, err := reg.BuildStages(b.Stages)
		if err != nil {
			return anchor.Stage{}, fmt.Errorf("branch %d (%s): %w", i, name, err)
		}
		chain, err := anchor.Dynamic(stages, anchor.WithChainName(name), anchor.WithLogger(reg.Logger()))
		if err != nil {
			return anchor.Stage{}, fmt.Errorf("branch %d (%s): %w", i, name, err)
		}
		branches = append(branches, chain)
	}

	opts := []anchor.ParallelOption{anchor.WithParallelName(def.StageName())}
	if n, ok := intConfig(def.Config, "concurrency"); ok {
		opts = append(opts, anchor.WithConcurrency(n))
	}

	switch def.Combine {
	case "", CombineJoin:
		sep := stringConfig(def.Config, "separator", "\n")
		join := anchor.Combine(func(parts []any) (string, error) {
			strs := make([]string, len(parts))
			for i, p := range parts {
				if s, ok := p.(string); ok {
					strs[i] = s
				} else {
					strs[i] = fmt.Sprint(p)
				}
			}
			return strings.Join(strs, sep), nil
		})
		return anchor.Erase(def.StageName(), anchor.Node[any, string](anchor.NewParallelNode(branches, join, opts...))), nil
	case CombineList:
		list := anchor.Combine(func(parts []any) (any, error) {
			return parts, nil
		})
		return anchor.Erase(def.StageName(), anchor.Node[any, any](anchor.NewParallelNode(branches, list, opts...))), nil
	case CombineFirst:
		first := anchor.Combine(func(parts []any) (any, error) {
			if len(parts) == 0 {
				return nil, anchor.NewError(anchor.KindEmptyResponse, "no branch results")
			}
			return parts[0], nil
		})
		return anchor.Erase(def.StageName(), anchor.Node[any, any](anchor.NewParallelNode(branches, first, opts...))), nil
	default:
		return anchor.Stage{}, fmt.Errorf("unknown combine strategy %q", def.Combine)
	}
}
