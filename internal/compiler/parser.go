package compiler

import (
	"fmt"

	"github.com/aretw0/ivy/internal/dto"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw bytes into a Scenario.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes YAML (or JSON, which is valid YAML) into a Scenario.
// Unknown keys are rejected so typos do not silently drop steps.
func (p *Parser) Parse(data []byte) (*dto.Scenario, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("scenario is empty")
	}

	var sc dto.Scenario
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &sc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return &sc, nil
}
