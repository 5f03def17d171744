package hfsm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntrance means no entrance condition held during OnEnter.
	ErrNoEntrance = errors.New("no entrance condition evaluated to true")
	// ErrNoTransitions means the active state has no registered outgoing edges.
	ErrNoTransitions = errors.New("no transitions leading away from state")
	// ErrNotEntered means a machine was driven without a preceding OnEnter.
	ErrNotEntered = errors.New("machine not entered")
	// ErrAlreadyEntered means OnEnter was called twice without OnExit.
	ErrAlreadyEntered = errors.New("machine already entered")
	// ErrNilState means a nil State was passed during registration.
	ErrNilState = errors.New("nil state")
	// ErrIncomparableState means a State's dynamic type cannot be a map key.
	ErrIncomparableState = errors.New("state type is not comparable")
)

// Kind names a diagnostic event.
type Kind int

const (
	// ConfigurationError is an authoring bug: no entrance condition held, or a
	// nil state was registered.
	ConfigurationError Kind = iota + 1
	// MissingTransitionTable warns that the active state is a dead end.
	MissingTransitionTable
	// InvariantViolation is caller misuse of the lifecycle contract.
	InvariantViolation
	// TransitionFired records an edge firing during Update.
	TransitionFired
)

func (k Kind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case MissingTransitionTable:
		return "MissingTransitionTable"
	case InvariantViolation:
		return "InvariantViolation"
	case TransitionFired:
		return "TransitionFired"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Severity values line up with OpenTelemetry severity numbers.
type Severity int

const (
	SeverityDebug   Severity = 5
	SeverityInfo    Severity = 9
	SeverityWarning Severity = 13
	SeverityError   Severity = 17
)

func (s Severity) String() string {
	switch {
	case s <= 8:
		return "DEBUG"
	case s <= 12:
		return "INFO"
	case s <= 16:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Diagnostic is an event emitted by a StateMachine. The engine never formats
// or displays it; that is the job of the Sink.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	// Machine is the name of the emitting machine.
	Machine string
	// State is the state the event concerns.
	State string
	// From and To are set for TransitionFired and for rejected registrations.
	From string
	To   string
	// Path is the active path of the emitting machine at report time.
	Path string
	// Err wraps one of the package sentinel errors; nil for TransitionFired.
	Err error
}

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(d Diagnostic)

func (f SinkFunc) Report(d Diagnostic) { f(d) }

// NopSink discards all diagnostics.
type NopSink struct{}

func (NopSink) Report(Diagnostic) {}

// MultiSink fans diagnostics out to several sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a MultiSink forwarding to all non-nil sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

func (m *MultiSink) Report(d Diagnostic) {
	for _, s := range m.sinks {
		s.Report(d)
	}
}
