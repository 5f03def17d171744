// Package hfsm is a tick-driven hierarchical finite-state machine runtime.
//
// A StateMachine is itself a State, so machines nest to any depth: entering,
// updating and exiting an outer machine drives whichever inner state is
// active. The host calls OnEnter once after wiring, Update once per tick and
// OnExit once at teardown. Nothing here blocks, schedules or spawns
// goroutines.
//
//	idle, walk := &Idle{}, &Walk{}
//	ground := hfsm.New("ground", hfsm.WithSink(sink))
//	ground.AddEntranceCondition(idle, hfsm.Always)
//	ground.AddTransition(idle, walk, func() bool { return input.Moving })
//	ground.AddTransition(walk, idle, func() bool { return !input.Moving })
//
//	ground.OnEnter()
//	for range ticker.C {
//		ground.Update()
//	}
//	ground.OnExit()
package hfsm

import (
	"fmt"
	"reflect"
	"strings"
)

// State is the behavior unit driven by a StateMachine. Leaf behaviors and
// composite machines implement it alike.
type State interface {
	// OnEnter runs once when control transfers into the state.
	OnEnter()
	// Update runs once per tick while the state is active.
	Update()
	// OnExit runs once when control transfers away from the state.
	OnExit()
}

// Namer is implemented by states that report their own diagnostic name.
type Namer interface {
	Name() string
}

// pather is implemented by composite states that render a nested active path.
type pather interface {
	CurrentPath() string
}

// NameOf returns the diagnostic name of s: its Name, its String, or the name of
// its concrete type.
func NameOf(s State) string {
	switch v := s.(type) {
	case nil:
		return unsetName
	case Namer:
		return v.Name()
	case fmt.Stringer:
		return v.String()
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

const unsetName = "<unset>"

// hashable reports whether s can key the transition table.
func hashable(s State) bool {
	return reflect.TypeOf(s).Comparable()
}

// Predicate is a cheap, synchronous read of external state guarding an edge.
// A nil Predicate always passes.
type Predicate func() bool

// Always is a Predicate that is always true.
func Always() bool { return true }

// Never is a Predicate that is always false.
func Never() bool { return false }

// Not negates p.
func Not(p Predicate) Predicate {
	return func() bool { return !eval(p) }
}

// All is true when every predicate is true. Evaluation short-circuits in order.
func All(ps ...Predicate) Predicate {
	return func() bool {
		for _, p := range ps {
			if !eval(p) {
				return false
			}
		}
		return true
	}
}

// Any is true when at least one predicate is true. Evaluation short-circuits in order.
func Any(ps ...Predicate) Predicate {
	return func() bool {
		for _, p := range ps {
			if eval(p) {
				return true
			}
		}
		return false
	}
}

func eval(p Predicate) bool {
	if p == nil {
		return true
	}
	return p()
}

// Transition is a directed, guarded edge. The target is not owned by the
// transition; the embedding application owns every State.
type Transition struct {
	when   Predicate
	target State
}

// NewTransition returns an edge to target guarded by when.
func NewTransition(when Predicate, target State) Transition {
	return Transition{when: when, target: target}
}

// Evaluate invokes the predicate and reports whether the edge may fire.
func (t Transition) Evaluate() bool {
	return eval(t.when)
}

// NextState returns the target of the edge.
func (t Transition) NextState() State {
	return t.target
}

// Edge describes one registered outgoing transition, for introspection.
type Edge struct {
	From State
	To   State
	// Priority is the registration index among edges leaving From; 0 wins ties.
	Priority int
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithSink routes diagnostics of the machine to sink.
func WithSink(sink Sink) Option {
	return func(m *StateMachine) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// StateMachine is a composite State. It owns an active-state slot, an ordered
// list of entrance conditions and, per source state, an ordered list of
// outgoing transitions. Registration happens before the first OnEnter; the
// graph is treated as frozen afterwards.
//
// States are used as map keys, so their dynamic types must be comparable;
// pointer types are the norm. Registrations of other types are rejected.
type StateMachine struct {
	name     string
	active   State // nil until a successful OnEnter
	entered  bool
	entrance []Transition
	edges    map[State][]Transition
	sources  []State // registration order of edges keys
	sink     Sink
}

// New creates an empty machine. The name is used in diagnostics and paths.
func New(name string, opts ...Option) *StateMachine {
	m := &StateMachine{
		name:  name,
		edges: make(map[State][]Transition),
		sink:  NopSink{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the machine name.
func (m *StateMachine) Name() string {
	return m.name
}

// String returns the machine name.
func (m *StateMachine) String() string {
	return m.name
}

// AddTransition appends an edge from -> to guarded by when. Earlier
// registrations take priority over later ones from the same source.
func (m *StateMachine) AddTransition(from, to State, when Predicate) {
	if from == nil || to == nil {
		m.report(Diagnostic{
			Kind:     ConfigurationError,
			Severity: SeverityError,
			From:     NameOf(from),
			To:       NameOf(to),
			Err:      fmt.Errorf("add transition %s -> %s: %w", NameOf(from), NameOf(to), ErrNilState),
		})
		return
	}
	if !hashable(from) || !hashable(to) {
		m.report(Diagnostic{
			Kind:     ConfigurationError,
			Severity: SeverityError,
			From:     NameOf(from),
			To:       NameOf(to),
			Err:      fmt.Errorf("add transition %s -> %s: %w", NameOf(from), NameOf(to), ErrIncomparableState),
		})
		return
	}
	if _, ok := m.edges[from]; !ok {
		m.sources = append(m.sources, from)
	}
	m.edges[from] = append(m.edges[from], NewTransition(when, to))
}

// AddEntranceCondition appends an edge consulted only by OnEnter to pick the
// initial active state. Earlier registrations take priority.
func (m *StateMachine) AddEntranceCondition(to State, when Predicate) {
	if to == nil {
		m.report(Diagnostic{
			Kind:     ConfigurationError,
			Severity: SeverityError,
			To:       unsetName,
			Err:      fmt.Errorf("add entrance condition: %w", ErrNilState),
		})
		return
	}
	if !hashable(to) {
		m.report(Diagnostic{
			Kind:     ConfigurationError,
			Severity: SeverityError,
			To:       NameOf(to),
			Err:      fmt.Errorf("add entrance condition %s: %w", NameOf(to), ErrIncomparableState),
		})
		return
	}
	m.entrance = append(m.entrance, NewTransition(when, to))
}

// CurrentState returns the active state. ok is false before the first
// OnEnter and after an OnEnter in which no entrance condition held.
func (m *StateMachine) CurrentState() (s State, ok bool) {
	return m.active, m.active != nil
}

// CurrentPath renders the active path down to the innermost leaf, e.g.
// "[player]->[ground]->Idle".
func (m *StateMachine) CurrentPath() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(m.name)
	b.WriteString("]->")
	switch a := m.active.(type) {
	case nil:
		b.WriteString(unsetName)
	case pather:
		b.WriteString(a.CurrentPath())
	default:
		b.WriteString(NameOf(a))
	}
	return b.String()
}

// OnEnter resolves the initial active state from the entrance conditions, in
// registration order, and enters it. When none holds the slot stays unset and
// a ConfigurationError is reported.
func (m *StateMachine) OnEnter() {
	if m.entered {
		m.report(Diagnostic{
			Kind:     InvariantViolation,
			Severity: SeverityWarning,
			State:    NameOf(m.active),
			Err:      fmt.Errorf("machine %s: %w", m.name, ErrAlreadyEntered),
		})
	}
	m.entered = true
	m.active = nil

	for _, t := range m.entrance {
		if t.Evaluate() {
			m.active = t.NextState()
			break
		}
	}

	if m.active == nil {
		m.report(Diagnostic{
			Kind:     ConfigurationError,
			Severity: SeverityError,
			State:    unsetName,
			Err:      fmt.Errorf("machine %s: %w", m.name, ErrNoEntrance),
		})
		return
	}
	m.active.OnEnter()
}

// Update delegates to the active state, then fires at most one outgoing edge:
// the earliest registered one whose predicate holds.
func (m *StateMachine) Update() {
	if m.active == nil {
		m.report(Diagnostic{
			Kind:     InvariantViolation,
			Severity: SeverityError,
			State:    unsetName,
			Err:      fmt.Errorf("machine %s: update with no active state: %w", m.name, ErrNotEntered),
		})
		return
	}

	m.active.Update()

	transitions, ok := m.edges[m.active]
	if !ok || len(transitions) == 0 {
		m.report(Diagnostic{
			Kind:     MissingTransitionTable,
			Severity: SeverityWarning,
			State:    NameOf(m.active),
			Err:      fmt.Errorf("machine %s: state %s: %w", m.name, NameOf(m.active), ErrNoTransitions),
		})
		return
	}

	for _, t := range transitions {
		if t.Evaluate() {
			m.fire(t.NextState())
			return
		}
	}
}

// fire exits the active state and enters next. next may equal the active state.
func (m *StateMachine) fire(next State) {
	prev := m.active
	prev.OnExit()
	m.active = next
	m.active.OnEnter()

	m.report(Diagnostic{
		Kind:     TransitionFired,
		Severity: SeverityDebug,
		State:    NameOf(next),
		From:     NameOf(prev),
		To:       NameOf(next),
	})
}

// OnExit exits the active state, which propagates to the innermost active leaf.
func (m *StateMachine) OnExit() {
	if !m.entered {
		m.report(Diagnostic{
			Kind:     InvariantViolation,
			Severity: SeverityWarning,
			State:    NameOf(m.active),
			Err:      fmt.Errorf("machine %s: exit: %w", m.name, ErrNotEntered),
		})
	}
	m.entered = false
	if m.active != nil {
		m.active.OnExit()
	}
}

// Entrances returns the entrance targets in registration order.
func (m *StateMachine) Entrances() []State {
	out := make([]State, 0, len(m.entrance))
	for _, t := range m.entrance {
		out = append(out, t.NextState())
	}
	return out
}

// Sources returns every state with registered outgoing edges, in the order the
// first edge of each was registered.
func (m *StateMachine) Sources() []State {
	return append([]State(nil), m.sources...)
}

// Edges returns all outgoing edges grouped by source in registration order.
func (m *StateMachine) Edges() []Edge {
	var out []Edge
	for _, from := range m.sources {
		for i, t := range m.edges[from] {
			out = append(out, Edge{From: from, To: t.NextState(), Priority: i})
		}
	}
	return out
}

func (m *StateMachine) report(d Diagnostic) {
	d.Machine = m.name
	if d.Path == "" {
		d.Path = m.CurrentPath()
	}
	m.sink.Report(d)
}
