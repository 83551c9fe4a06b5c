package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateNodeConfig validates a stage configuration against its schema.
func ValidateNodeConfig(meta *NodeMetadata, config map[string]any) error {
	if len(meta.ConfigSchema) == 0 {
		return nil
	}
	if config == nil {
		config = map[string]any{}
	}

	schemaJSON, err := json.Marshal(meta.ConfigSchema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// ValidateAllNodeConfigs validates configurations keyed by stage type.
func ValidateAllNodeConfigs(registry *Registry, configs map[string]map[string]any) error {
	for nodeType, config := range configs {
		builder, exists := registry.Get(nodeType)
		if !exists {
			return fmt.Errorf("unknown stage type: %s", nodeType)
		}

		meta := builder.Metadata()
		if err := ValidateNodeConfig(&meta, config); err != nil {
			return fmt.Errorf("stage '%s': %w", nodeType, err)
		}
	}

	return nil
}
