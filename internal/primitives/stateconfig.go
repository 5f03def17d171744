package primitives

import (
	"errors"
	"fmt"
)

// StateConfig is one state of a machine: a leaf behavior or a nested machine.
type StateConfig struct {
	Name string `json:"name" yaml:"name"`
	// Leaf names the registered behavior. Defaults to Name.
	Leaf    string         `json:"leaf,omitempty" yaml:"leaf,omitempty"`
	Machine *MachineConfig `json:"machine,omitempty" yaml:"machine,omitempty"`
}

// NewLeafState creates a leaf state bound to the behavior registered as leaf.
// An empty leaf binds to the behavior registered under name.
func NewLeafState(name, leaf string) *StateConfig {
	return &StateConfig{Name: name, Leaf: leaf}
}

// NewMachineState creates a state that nests machine.
func NewMachineState(name string, machine *MachineConfig) *StateConfig {
	return &StateConfig{Name: name, Machine: machine}
}

// IsComposite reports whether the state nests a machine.
func (s *StateConfig) IsComposite() bool {
	return s.Machine != nil
}

// Behavior returns the registered behavior name of a leaf state.
func (s *StateConfig) Behavior() string {
	if s.Leaf != "" {
		return s.Leaf
	}
	return s.Name
}

// Validate checks the state and, recursively, its nested machine.
func (s *StateConfig) Validate() error {
	if s.Name == "" {
		return errors.New("state name is required")
	}
	if err := validateName(s.Name); err != nil {
		return err
	}
	if s.Machine == nil {
		return nil
	}
	if s.Leaf != "" {
		return fmt.Errorf("state %s cannot have both leaf %q and machine", s.Name, s.Leaf)
	}
	if err := s.Machine.Validate(); err != nil {
		return fmt.Errorf("state %s: %w", s.Name, err)
	}
	return nil
}
