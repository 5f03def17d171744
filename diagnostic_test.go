package hfsm_test

import (
	"testing"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/testutil"
)

func TestKindString(t *testing.T) {
	tests := map[hfsm.Kind]string{
		hfsm.ConfigurationError:     "ConfigurationError",
		hfsm.MissingTransitionTable: "MissingTransitionTable",
		hfsm.InvariantViolation:     "InvariantViolation",
		hfsm.TransitionFired:        "TransitionFired",
		hfsm.Kind(42):               "Kind(42)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestSeverityString(t *testing.T) {
	tests := map[hfsm.Severity]string{
		hfsm.SeverityDebug:   "DEBUG",
		hfsm.SeverityInfo:    "INFO",
		hfsm.SeverityWarning: "WARN",
		hfsm.SeverityError:   "ERROR",
		hfsm.Severity(21):    "ERROR",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestMultiSink(t *testing.T) {
	first := &testutil.RecordingSink{}
	second := &testutil.RecordingSink{}
	var calls int
	fn := hfsm.SinkFunc(func(hfsm.Diagnostic) { calls++ })

	multi := hfsm.NewMultiSink(first, nil, second, fn)
	multi.Report(hfsm.Diagnostic{Kind: hfsm.TransitionFired})

	if len(first.All()) != 1 || len(second.All()) != 1 || calls != 1 {
		t.Errorf("fan-out = %d/%d/%d, want 1/1/1", len(first.All()), len(second.All()), calls)
	}
}

func TestDiagnosticCarriesMachineAndPath(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	m.AddEntranceCondition(a, hfsm.Always)

	m.OnEnter()
	m.Update()

	got := sink.OfKind(hfsm.MissingTransitionTable)
	if len(got) != 1 {
		t.Fatalf("MissingTransitionTable count = %d, want 1", len(got))
	}
	d := got[0]
	if d.Machine != "root" || d.State != "A" || d.Path != "[root]->A" {
		t.Errorf("diagnostic = %+v", d)
	}
	if d.Severity != hfsm.SeverityWarning {
		t.Errorf("Severity = %v, want WARN", d.Severity)
	}
}

func TestNopSinkDefault(t *testing.T) {
	m := hfsm.New("quiet", hfsm.WithSink(nil))
	m.OnEnter() // no entrance conditions; must not panic
	m.Update()
}
