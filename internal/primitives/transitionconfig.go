package primitives

import (
	"errors"
	"fmt"
)

// EdgeConfig is one guarded edge. Entrance edges leave From empty.
// List order is priority order: the first edge whose guard holds wins.
type EdgeConfig struct {
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to" yaml:"to"`
	// When is a guard expression or a registered guard name. Empty always passes.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Validate checks the edge fields. entrance selects the entrance-edge rules.
func (e *EdgeConfig) Validate(entrance bool) error {
	if e.To == "" {
		return errors.New("to is required")
	}
	if err := validateName(e.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if entrance {
		if e.From != "" {
			return fmt.Errorf("entrance edge cannot have from (%q)", e.From)
		}
		return nil
	}
	if e.From == "" {
		return errors.New("from is required")
	}
	if err := validateName(e.From); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	return nil
}

// validateName accepts letters, digits, underscores and hyphens.
func validateName(name string) error {
	if name == "" {
		return errors.New("name is empty")
	}
	for i, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return fmt.Errorf("invalid name %q: invalid character '%c' at index %d", name, r, i)
		}
	}
	return nil
}
