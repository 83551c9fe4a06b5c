// Package builtin turns YAML chain definitions into runnable chains using a
// registry of stage builders.
package builtin

import (
	"fmt"
	"slices"
	"sync"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/log"
	"github.com/agentstation/anchor/middleware"
	"github.com/agentstation/anchor/yaml"
)

// NodeBuilder creates stages and provides metadata.
type NodeBuilder interface {
	Metadata() NodeMetadata
	Build(def *yaml.StageDefinition, reg *Registry) (anchor.Stage, error)
}

// Registry manages stage builders by type.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]NodeBuilder
	logger   anchor.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger handed to logger stages and loaded chains.
func WithLogger(logger anchor.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		builders: make(map[string]NodeBuilder),
		logger:   log.Default,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default creates a registry holding every built-in stage type.
func Default(opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)

	// core
	r.Register(passthroughBuilder())
	r.Register(loggerBuilder())
	r.Register(parallelBuilder())

	// text
	r.Register(promptBuilder())
	r.Register(upperBuilder())
	r.Register(lowerBuilder())
	r.Register(appendBuilder())
	r.Register(trimBuilder())

	// data
	r.Register(jsonBuilder())
	r.Register(jsonPathBuilder())
	r.Register(validateBuilder())
	r.Register(luaBuilder())

	// models
	r.Register(openAIBuilder())

	return r
}

// Register adds a builder, replacing any builder of the same type.
func (r *Registry) Register(builder NodeBuilder) {
	meta := builder.Metadata()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[meta.Type] = builder
}

// Get returns a builder by type.
func (r *Registry) Get(nodeType string) (NodeBuilder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	builder, exists := r.builders[nodeType]
	return builder, exists
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Logger returns the registry logger.
func (r *Registry) Logger() anchor.Logger { return r.logger }

// Build validates the stage configuration against the builder schema,
// builds the stage and applies its timeout and retry settings.
func (r *Registry) Build(def *yaml.StageDefinition) (anchor.Stage, error) {
	builder, ok := r.Get(def.Type)
	if !ok {
		return anchor.Stage{}, fmt.Errorf("unknown stage type %q", def.Type)
	}

	meta := builder.Metadata()
	if err := ValidateNodeConfig(&meta, def.Config); err != nil {
		return anchor.Stage{}, fmt.Errorf("stage '%s': %w", def.StageName(), err)
	}

	stage, err := builder.Build(def, r)
	if err != nil {
		return anchor.Stage{}, fmt.Errorf("stage '%s': %w", def.StageName(), err)
	}

	timeout, err := def.GetTimeout()
	if err != nil {
		return anchor.Stage{}, fmt.Errorf("stage '%s': %w", def.StageName(), err)
	}
	if timeout > 0 {
		stage = stage.Wrap(middleware.Timeout[any, any](timeout))
	}

	if def.Retry != nil {
		policy, err := retryPolicy(def.Retry)
		if err != nil {
			return anchor.Stage{}, fmt.Errorf("stage '%s': %w", def.StageName(), err)
		}
		stage = stage.Wrap(middleware.Retry[any, any](policy))
	}

	return stage, nil
}

// BuildStages builds every definition in order.
func (r *Registry) BuildStages(defs []yaml.StageDefinition) ([]anchor.Stage, error) {
	stages := make([]anchor.Stage, 0, len(defs))
	for i := range defs {
		stage, err := r.Build(&defs[i])
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func retryPolicy(rc *yaml.RetryConfig) (middleware.RetryPolicy, error) {
	delay, err := rc.GetRetryDelay()
	if err != nil {
		return middleware.RetryPolicy{}, fmt.Errorf("parse retry delay: %w", err)
	}
	maxDelay, err := rc.GetMaxDelay()
	if err != nil {
		return middleware.RetryPolicy{}, fmt.Errorf("parse retry max_delay: %w", err)
	}

	// max_attempts counts every call, the policy counts retries.
	return middleware.RetryPolicy{
		MaxAttempts:  rc.MaxAttempts - 1,
		InitialDelay: delay,
		MaxDelay:     maxDelay,
		Multiplier:   rc.Multiplier,
	}, nil
}
