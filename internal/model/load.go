package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a logical model from YAML. The result is not yet validated;
// call Validate before handing it to the policy engine.
func Load(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	// Identifier attributes are mandatory by definition.
	for i := range m.Entities {
		for j := range m.Entities[i].Attributes {
			if m.Entities[i].Attributes[j].Identifier {
				m.Entities[i].Attributes[j].Mandatory = true
			}
		}
	}

	return &m, nil
}

// LoadFile reads and parses a logical model from a YAML file.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Load(data)
}
