package assignment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type rulesDocument struct {
	Rules RuleSet `yaml:"rules"`
}

// LoadRules reads a YAML rule table. An empty path yields DefaultRules.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (RuleSet, error) {
	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("%w: rules file declares no rules", ErrInvalidRule)
	}
	if err := doc.Rules.Validate(); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// MarshalRules renders a rule table in the format LoadRules accepts.
func MarshalRules(rules RuleSet) ([]byte, error) {
	return yaml.Marshal(rulesDocument{Rules: rules})
}
