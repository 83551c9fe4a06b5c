// Package yaml provides YAML chain definitions for anchor.
package yaml

import (
	"errors"
	"fmt"
	"time"
)

// ParallelType is the stage type whose branches run concurrently.
const ParallelType = "parallel"

// ChainDefinition represents a complete chain defined in YAML.
type ChainDefinition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Version     string            `yaml:"version,omitempty"`
	Trace       bool              `yaml:"trace,omitempty"`
	Metadata    map[string]any    `yaml:"metadata,omitempty"`
	Stages      []StageDefinition `yaml:"stages"`
}

// StageDefinition represents one stage of a chain.
type StageDefinition struct {
	Name        string             `yaml:"name,omitempty"`
	Type        string             `yaml:"type"`
	Description string             `yaml:"description,omitempty"`
	Config      map[string]any     `yaml:"config,omitempty"`
	Retry       *RetryConfig       `yaml:"retry,omitempty"`
	Timeout     string             `yaml:"timeout,omitempty"`
	Branches    []BranchDefinition `yaml:"branches,omitempty"`
	Combine     string             `yaml:"combine,omitempty"`
}

// BranchDefinition is one sibling of a parallel stage. Its stages form a
// chain that receives the parallel stage's input.
type BranchDefinition struct {
	Name   string            `yaml:"name,omitempty"`
	Stages []StageDefinition `yaml:"stages"`
}

// RetryConfig represents retry configuration in YAML.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	Delay       string  `yaml:"delay"`
	Multiplier  float64 `yaml:"multiplier,omitempty"`
	MaxDelay    string  `yaml:"max_delay,omitempty"`
}

// StageName returns the configured name or, when empty, the stage type.
func (sd *StageDefinition) StageName() string {
	if sd.Name != "" {
		return sd.Name
	}
	return sd.Type
}

// Validate checks if the chain definition is valid.
func (cd *ChainDefinition) Validate() error {
	if cd.Name == "" {
		return errors.New("chain name is required")
	}
	if len(cd.Stages) == 0 {
		return errors.New("at least one stage is required")
	}
	return validateStages(cd.Stages)
}

func validateStages(stages []StageDefinition) error {
	for i := range stages {
		if err := stages[i].Validate(); err != nil {
			return fmt.Errorf("stage %d (%s): %w", i, stages[i].StageName(), err)
		}
	}
	return nil
}

// Validate checks if the stage definition is valid.
func (sd *StageDefinition) Validate() error {
	if sd.Type == "" {
		return errors.New("stage type is required")
	}

	if sd.Type == ParallelType {
		if len(sd.Branches) == 0 {
			return errors.New("parallel stage needs at least one branch")
		}
		for i, b := range sd.Branches {
			if len(b.Stages) == 0 {
				return fmt.Errorf("branch %d has no stages", i)
			}
			if err := validateStages(b.Stages); err != nil {
				return fmt.Errorf("branch %d: %w", i, err)
			}
		}
	} else if len(sd.Branches) > 0 || sd.Combine != "" {
		return fmt.Errorf("branches and combine are only valid for %s stages", ParallelType)
	}

	if sd.Timeout != "" {
		if _, err := time.ParseDuration(sd.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}

	if sd.Retry != nil {
		if err := sd.Retry.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
	}

	return nil
}

// Validate checks if the retry config is valid.
func (rc *RetryConfig) Validate() error {
	if rc.MaxAttempts <= 0 {
		return errors.New("max_attempts must be positive")
	}

	if rc.Delay == "" {
		return errors.New("delay is required")
	}
	if _, err := time.ParseDuration(rc.Delay); err != nil {
		return fmt.Errorf("invalid delay: %w", err)
	}

	if rc.MaxDelay != "" {
		if _, err := time.ParseDuration(rc.MaxDelay); err != nil {
			return fmt.Errorf("invalid max_delay: %w", err)
		}
	}

	if rc.Multiplier < 0 {
		return errors.New("multiplier cannot be negative")
	}

	return nil
}

// GetTimeout returns the parsed timeout duration.
func (sd *StageDefinition) GetTimeout() (time.Duration, error) {
	if sd.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(sd.Timeout)
}

// GetRetryDelay returns the parsed retry delay duration.
func (rc *RetryConfig) GetRetryDelay() (time.Duration, error) {
	return time.ParseDuration(rc.Delay)
}

// GetMaxDelay returns the parsed max delay duration.
func (rc *RetryConfig) GetMaxDelay() (time.Duration, error) {
	if rc.MaxDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(rc.MaxDelay)
}
