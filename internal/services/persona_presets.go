package services

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	types "github.com/govairn/govairn-backend/internal/domain"
)

//go:embed presets/presets.yaml
var presetsYAML []byte

type PersonaPreset struct {
	Key         string              `yaml:"key" json:"key"`
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description" json:"description"`
	Values      types.PersonaValues `yaml:"values" json:"values"`
}

func loadPresets(raw []byte) ([]PersonaPreset, error) {
	var out []PersonaPreset
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse persona presets: %w", err)
	}
	seen := map[string]bool{}
	for _, p := range out {
		if p.Key == "" || seen[p.Key] {
			return nil, fmt.Errorf("persona preset key %q empty or duplicated", p.Key)
		}
		seen[p.Key] = true
		if err := p.Values.Validate(); err != nil {
			return nil, fmt.Errorf("persona preset %s: %w", p.Key, err)
		}
	}
	return out, nil
}
