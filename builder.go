package hfsm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownState means an edge names a state that was never registered.
	ErrUnknownState = errors.New("unknown state")
	// ErrDuplicateState means two states were registered under one name, or
	// one state instance under two names.
	ErrDuplicateState = errors.New("duplicate state name")
)

// MachineBuilder wires a StateMachine from name-keyed states so that typos
// and missing entrance conditions surface as errors before activation.
type MachineBuilder struct {
	name     string
	opts     []Option
	states   map[string]State
	names    map[State]string
	order    []string
	entrance []namedEdge
	edges    []namedEdge
	errs     []error
}

type namedEdge struct {
	from, to string
	when     Predicate
}

// NewMachineBuilder starts a builder for a machine called name.
func NewMachineBuilder(name string, opts ...Option) *MachineBuilder {
	return &MachineBuilder{
		name:   name,
		opts:   opts,
		states: make(map[string]State),
		names:  make(map[State]string),
	}
}

// State registers s under name. s may itself be a *StateMachine.
func (b *MachineBuilder) State(name string, s State) *MachineBuilder {
	switch {
	case name == "":
		b.errs = append(b.errs, errors.New("state name is required"))
	case s == nil:
		b.errs = append(b.errs, fmt.Errorf("state %q: %w", name, ErrNilState))
	case !hashable(s):
		b.errs = append(b.errs, fmt.Errorf("state %q: %w", name, ErrIncomparableState))
	default:
		if _, exists := b.states[name]; exists {
			b.errs = append(b.errs, fmt.Errorf("state %q: %w", name, ErrDuplicateState))
			return b
		}
		// Edges are keyed by identity, so one instance under two names
		// would merge their transition lists.
		if prev, exists := b.names[s]; exists {
			b.errs = append(b.errs, fmt.Errorf("state %q: instance already registered as %q: %w", name, prev, ErrDuplicateState))
			return b
		}
		b.states[name] = s
		b.names[s] = name
		b.order = append(b.order, name)
	}
	return b
}

// Entrance adds an entrance condition to the named state.
func (b *MachineBuilder) Entrance(to string, when Predicate) *MachineBuilder {
	b.entrance = append(b.entrance, namedEdge{to: to, when: when})
	return b
}

// On adds a transition between two named states.
func (b *MachineBuilder) On(from, to string, when Predicate) *MachineBuilder {
	b.edges = append(b.edges, namedEdge{from: from, to: to, when: when})
	return b
}

// Lookup returns the state registered under name.
func (b *MachineBuilder) Lookup(name string) (State, bool) {
	s, ok := b.states[name]
	return s, ok
}

// Names returns the registered state names in registration order.
func (b *MachineBuilder) Names() []string {
	return append([]string(nil), b.order...)
}

// Build validates the wiring and constructs the machine.
func (b *MachineBuilder) Build() (*StateMachine, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("machine %q: %w", b.name, err)
	}

	m := New(b.name, b.opts...)
	for _, e := range b.entrance {
		m.AddEntranceCondition(b.states[e.to], e.when)
	}
	for _, e := range b.edges {
		m.AddTransition(b.states[e.from], b.states[e.to], e.when)
	}
	return m, nil
}

// validate checks that every edge endpoint exists and at least one entrance
// condition is registered.
func (b *MachineBuilder) validate() error {
	if b.name == "" {
		return errors.New("machine name is required")
	}
	if len(b.errs) > 0 {
		return b.errs[0]
	}
	if len(b.entrance) == 0 {
		return ErrNoEntrance
	}
	for i, e := range b.entrance {
		if _, ok := b.states[e.to]; !ok {
			return fmt.Errorf("entrance %d to %q: %w", i, e.to, ErrUnknownState)
		}
	}
	for i, e := range b.edges {
		if _, ok := b.states[e.from]; !ok {
			return fmt.Errorf("transition %d %q -> %q: source: %w", i, e.from, e.to, ErrUnknownState)
		}
		if _, ok := b.states[e.to]; !ok {
			return fmt.Errorf("transition %d %q -> %q: target: %w", i, e.from, e.to, ErrUnknownState)
		}
	}
	return nil
}
