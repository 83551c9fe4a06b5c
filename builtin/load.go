package builtin

import (
	"context"
	"fmt"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/yaml"
)

// Load builds a chain from def. Stage types are resolved in reg, or in the
// default registry when reg is nil. Definition metadata is copied into the
// chain state under chain:metadata:<key>.
func Load(def *yaml.ChainDefinition, reg *Registry, opts ...anchor.Option) (*anchor.Chain[any, any], error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain definition: %w", err)
	}
	if reg == nil {
		reg = Default()
	}

	stages, err := reg.BuildStages(def.Stages)
	if err != nil {
		return nil, err
	}

	chainOpts := []anchor.Option{
		anchor.WithChainName(def.Name),
		anchor.WithLogger(reg.Logger()),
	}
	if def.Trace {
		chainOpts = append(chainOpts, anchor.WithTrace())
	}
	if len(def.Metadata) > 0 {
		state := anchor.NewStateManager()
		for k, v := range def.Metadata {
			state.Set(context.Background(), "chain:metadata:"+k, v)
		}
		chainOpts = append(chainOpts, anchor.WithState(state))
	}

	return anchor.Dynamic(stages, append(chainOpts, opts...)...)
}

// LoadFile parses a YAML definition file and builds its chain.
func LoadFile(filename string, reg *Registry, opts ...anchor.Option) (*anchor.Chain[any, any], error) {
	def, err := yaml.NewParser().ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return Load(def, reg, opts...)
}
