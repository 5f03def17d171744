package primitives

import (
	"errors"
	"fmt"
	"strings"

	"github.com/comalice/hfsm"
)

// ChartConfig is the document root of a chart file.
type ChartConfig struct {
	Version string         `json:"version,omitempty" yaml:"version,omitempty"`
	Machine *MachineConfig `json:"machine" yaml:"machine"`
}

// Validate validates the root machine.
func (c *ChartConfig) Validate() error {
	if c.Machine == nil {
		return errors.New("machine is required")
	}
	return c.Machine.Validate()
}

// MachineConfig defines one composite state.
type MachineConfig struct {
	Name        string         `json:"name" yaml:"name"`
	Entrance    []EdgeConfig   `json:"entrance" yaml:"entrance"`
	States      []*StateConfig `json:"states" yaml:"states"`
	Transitions []EdgeConfig   `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// Validate validates the machine configuration:
// - Non-empty, well-formed name
// - At least one state, with unique names, each valid (recursive)
// - At least one entrance edge
// - Every edge endpoint names a state of this machine
// - Every state is reachable from an entrance target
func (m *MachineConfig) Validate() error {
	if err := m.validate(); err != nil {
		if m.Name == "" {
			return err
		}
		return fmt.Errorf("machine %s: %w", m.Name, err)
	}
	return nil
}

func (m *MachineConfig) validate() error {
	if m.Name == "" {
		return errors.New("machine name is required")
	}
	if err := validateName(m.Name); err != nil {
		return err
	}
	if len(m.States) == 0 {
		return errors.New("states list is required and cannot be empty")
	}

	byName := make(map[string]*StateConfig, len(m.States))
	for i, s := range m.States {
		if s == nil {
			return fmt.Errorf("state %d: %w", i, hfsm.ErrNilState)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("state %d: %w", i, err)
		}
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("state %q: %w", s.Name, hfsm.ErrDuplicateState)
		}
		byName[s.Name] = s
	}

	if len(m.Entrance) == 0 {
		return hfsm.ErrNoEntrance
	}
	for i := range m.Entrance {
		e := &m.Entrance[i]
		if err := e.Validate(true); err != nil {
			return fmt.Errorf("entrance %d: %w", i, err)
		}
		if _, ok := byName[e.To]; !ok {
			return fmt.Errorf("entrance %d to %q: %w", i, e.To, hfsm.ErrUnknownState)
		}
	}
	for i := range m.Transitions {
		e := &m.Transitions[i]
		if err := e.Validate(false); err != nil {
			return fmt.Errorf("transition %d: %w", i, err)
		}
		if _, ok := byName[e.From]; !ok {
			return fmt.Errorf("transition %d %s -> %s: source: %w", i, e.From, e.To, hfsm.ErrUnknownState)
		}
		if _, ok := byName[e.To]; !ok {
			return fmt.Errorf("transition %d %s -> %s: target: %w", i, e.From, e.To, hfsm.ErrUnknownState)
		}
	}

	reached := m.reachable()
	for _, s := range m.States {
		if !reached[s.Name] {
			return fmt.Errorf("orphaned state %q (not reachable from any entrance)", s.Name)
		}
	}
	return nil
}

// reachable marks states reachable from the entrance targets along transitions.
func (m *MachineConfig) reachable() map[string]bool {
	visited := make(map[string]bool, len(m.States))
	queue := make([]string, 0, len(m.Entrance))
	for _, e := range m.Entrance {
		queue = append(queue, e.To)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true
		for _, e := range m.Transitions {
			if e.From == name && !visited[e.To] {
				queue = append(queue, e.To)
			}
		}
	}
	return visited
}

// State returns the direct child state called name.
func (m *MachineConfig) State(name string) (*StateConfig, bool) {
	for _, s := range m.States {
		if s != nil && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindState resolves a state by dot-separated path (e.g. "ground.idle").
func (m *MachineConfig) FindState(path string) (*StateConfig, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}
	segments := strings.Split(path, ".")
	current := m
	var found *StateConfig
	for i, seg := range segments {
		if current == nil {
			prefix := strings.Join(segments[:i], ".")
			return nil, fmt.Errorf("state %q is a leaf and has no child %q", prefix, seg)
		}
		s, ok := current.State(seg)
		if !ok {
			if i == 0 {
				return nil, fmt.Errorf("state %q not found", seg)
			}
			return nil, fmt.Errorf("child %q not found in %q", seg, strings.Join(segments[:i], "."))
		}
		found = s
		current = s.Machine
	}
	return found, nil
}

// Walk calls fn for m and every nested machine, depth first, with the
// dot-separated state path leading to it ("" for m itself).
func (m *MachineConfig) Walk(fn func(path string, mc *MachineConfig)) {
	m.walk("", fn)
}

func (m *MachineConfig) walk(path string, fn func(string, *MachineConfig)) {
	fn(path, m)
	for _, s := range m.States {
		if s == nil || s.Machine == nil {
			continue
		}
		child := s.Name
		if path != "" {
			child = path + "." + s.Name
		}
		s.Machine.walk(child, fn)
	}
}
