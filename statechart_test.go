package hfsm_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/testutil"
)

func newMachine(name string) (*hfsm.StateMachine, *testutil.RecordingSink) {
	sink := &testutil.RecordingSink{}
	return hfsm.New(name, hfsm.WithSink(sink)), sink
}

func mustCurrent(t *testing.T, m *hfsm.StateMachine) hfsm.State {
	t.Helper()
	s, ok := m.CurrentState()
	if !ok {
		t.Fatalf("machine %s has no active state", m.Name())
	}
	return s
}

// Entrance edges [(A, false), (B, true)] activate B without a ConfigurationError.
func TestEntranceFirstTrueWins(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	m.AddEntranceCondition(a, hfsm.Never)
	m.AddEntranceCondition(b, hfsm.Always)

	m.OnEnter()

	if got := mustCurrent(t, m); got != b {
		t.Errorf("CurrentState() = %s, want B", hfsm.NameOf(got))
	}
	if b.Enters != 1 || a.Enters != 0 {
		t.Errorf("enters A=%d B=%d, want A=0 B=1", a.Enters, b.Enters)
	}
	if got := sink.Count(hfsm.ConfigurationError); got != 0 {
		t.Errorf("ConfigurationError count = %d, want 0", got)
	}
}

func TestEntranceTieBrokenByOrder(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddEntranceCondition(b, hfsm.Always)

	m.OnEnter()

	if got := mustCurrent(t, m); got != a {
		t.Errorf("CurrentState() = %s, want A", hfsm.NameOf(got))
	}
}

func TestEntranceShortCircuits(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	var evaluated int
	m.AddEntranceCondition(a, func() bool { evaluated++; return true })
	m.AddEntranceCondition(b, func() bool { evaluated++; return true })

	m.OnEnter()

	if evaluated != 1 {
		t.Errorf("evaluated %d entrance predicates, want 1", evaluated)
	}
}

// No entrance edge true: one ConfigurationError, unset state, and Update
// reports InvariantViolation instead of crashing.
func TestNoEntranceConfigurationError(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	m.AddEntranceCondition(a, hfsm.Never)
	m.AddTransition(a, a, hfsm.Always)

	m.OnEnter()

	if _, ok := m.CurrentState(); ok {
		t.Fatal("CurrentState() should be unset")
	}
	cfg := sink.OfKind(hfsm.ConfigurationError)
	if len(cfg) != 1 {
		t.Fatalf("ConfigurationError count = %d, want 1", len(cfg))
	}
	if !errors.Is(cfg[0].Err, hfsm.ErrNoEntrance) {
		t.Errorf("Err = %v, want ErrNoEntrance", cfg[0].Err)
	}
	if cfg[0].Machine != "root" {
		t.Errorf("Machine = %q, want root", cfg[0].Machine)
	}

	m.Update()

	inv := sink.OfKind(hfsm.InvariantViolation)
	if len(inv) != 1 {
		t.Fatalf("InvariantViolation count = %d, want 1", len(inv))
	}
	if !errors.Is(inv[0].Err, hfsm.ErrNotEntered) {
		t.Errorf("Err = %v, want ErrNotEntered", inv[0].Err)
	}
	if a.Updates != 0 || a.Enters != 0 {
		t.Errorf("A touched: enters=%d updates=%d", a.Enters, a.Updates)
	}

	// Teardown on an inert machine is tolerated.
	m.OnExit()
	if a.Exits != 0 {
		t.Errorf("A.Exits = %d, want 0", a.Exits)
	}
}

func TestNoEntranceConditionsAtAll(t *testing.T) {
	m, sink := newMachine("empty")
	m.OnEnter()

	if _, ok := m.CurrentState(); ok {
		t.Error("CurrentState() should be unset")
	}
	if got := sink.Count(hfsm.ConfigurationError); got != 1 {
		t.Errorf("ConfigurationError count = %d, want 1", got)
	}
}

func TestUpdateBeforeEnter(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	m.AddEntranceCondition(a, hfsm.Always)

	m.Update()

	if got := sink.Count(hfsm.InvariantViolation); got != 1 {
		t.Errorf("InvariantViolation count = %d, want 1", got)
	}
	if a.Updates != 0 {
		t.Errorf("A.Updates = %d, want 0", a.Updates)
	}
}

// Machine active on B; B->A fires once p3 holds and produces B.OnExit then A.OnEnter.
func TestTransitionExitThenEnter(t *testing.T) {
	j := testutil.NewJournal()
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", j)
	b := testutil.NewProbe("B", j)

	p2, p3 := false, false
	m.AddTransition(a, b, func() bool { return p2 })
	m.AddTransition(b, a, func() bool { return p3 })
	m.AddEntranceCondition(b, hfsm.Always)

	m.OnEnter()
	m.Update()
	if got := mustCurrent(t, m); got != b {
		t.Fatalf("CurrentState() = %s, want B", hfsm.NameOf(got))
	}

	j.Reset()
	p3 = true
	m.Update()

	want := []string{"B.Update", "B.OnExit", "A.OnEnter"}
	if got := j.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if got := mustCurrent(t, m); got != a {
		t.Errorf("CurrentState() = %s, want A", hfsm.NameOf(got))
	}
	if b.Exits != 1 || a.Enters != 1 {
		t.Errorf("B.Exits=%d A.Enters=%d, want 1 and 1", b.Exits, a.Enters)
	}
}

func TestAtMostOneTransitionPerTick(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	c := testutil.NewProbe("C", nil)

	var order []string
	guard := func(name string, v bool) hfsm.Predicate {
		return func() bool { order = append(order, name); return v }
	}
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddTransition(a, b, guard("a->b", false))
	m.AddTransition(a, c, guard("a->c", true))
	m.AddTransition(a, b, guard("a->b again", true))
	m.AddTransition(c, b, hfsm.Always)

	m.OnEnter()
	m.Update()

	if got := mustCurrent(t, m); got != c {
		t.Fatalf("CurrentState() = %s, want C", hfsm.NameOf(got))
	}
	if want := []string{"a->b", "a->c"}; !reflect.DeepEqual(order, want) {
		t.Errorf("evaluation order = %v, want %v", order, want)
	}
	// C's own always-true edge waits for the next tick.
	if c.Updates != 0 || b.Enters != 0 {
		t.Errorf("C.Updates=%d B.Enters=%d, want 0 and 0", c.Updates, b.Enters)
	}
	if got := sink.Count(hfsm.TransitionFired); got != 1 {
		t.Errorf("TransitionFired count = %d, want 1", got)
	}

	m.Update()
	if got := mustCurrent(t, m); got != b {
		t.Errorf("CurrentState() = %s, want B", hfsm.NameOf(got))
	}
}

func TestUpdateRunsBeforeEdgeEvaluation(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	ready := false
	a.OnUpdate = func() { ready = true }

	m.AddEntranceCondition(a, hfsm.Always)
	m.AddTransition(a, b, func() bool { return ready })

	m.OnEnter()
	m.Update()

	if got := mustCurrent(t, m); got != b {
		t.Errorf("CurrentState() = %s, want B", hfsm.NameOf(got))
	}
}

// A state with zero outgoing edges warns every tick and never moves.
func TestMissingTransitionTable(t *testing.T) {
	m, sink := newMachine("root")
	c := testutil.NewProbe("C", nil)
	m.AddEntranceCondition(c, hfsm.Always)

	m.OnEnter()
	for i := 0; i < 5; i++ {
		m.Update()
		if got := sink.Count(hfsm.MissingTransitionTable); got != i+1 {
			t.Fatalf("after %d updates MissingTransitionTable count = %d", i+1, got)
		}
		if got := mustCurrent(t, m); got != c {
			t.Fatalf("CurrentState() = %s, want C", hfsm.NameOf(got))
		}
	}

	if c.Updates != 5 {
		t.Errorf("C.Updates = %d, want 5", c.Updates)
	}
	d := sink.OfKind(hfsm.MissingTransitionTable)[0]
	if d.State != "C" || !errors.Is(d.Err, hfsm.ErrNoTransitions) {
		t.Errorf("diagnostic = %+v", d)
	}
	if d.Severity != hfsm.SeverityWarning {
		t.Errorf("Severity = %v, want WARN", d.Severity)
	}
}

func TestNoEdgeTrueStays(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddTransition(a, b, hfsm.Never)

	m.OnEnter()
	m.Update()
	m.Update()

	if got := mustCurrent(t, m); got != a {
		t.Errorf("CurrentState() = %s, want A", hfsm.NameOf(got))
	}
	if a.Exits != 0 {
		t.Errorf("A.Exits = %d, want 0", a.Exits)
	}
	if n := len(sink.All()); n != 0 {
		t.Errorf("got %d diagnostics, want 0: %+v", n, sink.All())
	}
}

func TestSelfTransition(t *testing.T) {
	j := testutil.NewJournal()
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", j)
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddTransition(a, a, hfsm.Always)

	m.OnEnter()
	j.Reset()
	m.Update()

	want := []string{"A.Update", "A.OnExit", "A.OnEnter"}
	if got := j.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if a.Enters != 2 || a.Exits != 1 {
		t.Errorf("A enters=%d exits=%d, want 2 and 1", a.Enters, a.Exits)
	}
}

func TestCurrentStateStable(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	advance := false
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddTransition(a, b, func() bool { return advance })

	m.OnEnter()
	first := mustCurrent(t, m)
	for i := 0; i < 3; i++ {
		if got := mustCurrent(t, m); got != first {
			t.Fatalf("CurrentState() changed without a transition")
		}
		m.Update()
	}
	advance = true
	m.Update()
	if got := mustCurrent(t, m); got == first {
		t.Error("CurrentState() should change after a firing Update")
	}
}

func TestOnExitPropagates(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddTransition(a, a, hfsm.Never)

	m.OnEnter()
	m.OnExit()

	if a.Exits != 1 {
		t.Errorf("A.Exits = %d, want 1", a.Exits)
	}
}

func TestReenterAfterExit(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	useB := false
	m.AddEntranceCondition(b, func() bool { return useB })
	m.AddEntranceCondition(a, hfsm.Always)

	m.OnEnter()
	m.OnExit()
	useB = true
	m.OnEnter()

	if got := mustCurrent(t, m); got != b {
		t.Errorf("CurrentState() = %s, want B", hfsm.NameOf(got))
	}
	if got := sink.Count(hfsm.InvariantViolation); got != 0 {
		t.Errorf("InvariantViolation count = %d, want 0", got)
	}
}

func TestLifecycleMisuse(t *testing.T) {
	tests := []struct {
		name    string
		drive   func(m *hfsm.StateMachine)
		wantErr error
	}{
		{
			name:    "enter twice",
			drive:   func(m *hfsm.StateMachine) { m.OnEnter(); m.OnEnter() },
			wantErr: hfsm.ErrAlreadyEntered,
		},
		{
			name:    "exit without enter",
			drive:   func(m *hfsm.StateMachine) { m.OnExit() },
			wantErr: hfsm.ErrNotEntered,
		},
		{
			name:    "exit twice",
			drive:   func(m *hfsm.StateMachine) { m.OnEnter(); m.OnExit(); m.OnExit() },
			wantErr: hfsm.ErrNotEntered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sink := newMachine("root")
			a := testutil.NewProbe("A", nil)
			m.AddEntranceCondition(a, hfsm.Always)

			tt.drive(m)

			inv := sink.OfKind(hfsm.InvariantViolation)
			if len(inv) != 1 {
				t.Fatalf("InvariantViolation count = %d, want 1", len(inv))
			}
			if !errors.Is(inv[0].Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", inv[0].Err, tt.wantErr)
			}
		})
	}
}

func TestNilRegistrationRejected(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)

	m.AddTransition(nil, a, hfsm.Always)
	m.AddTransition(a, nil, hfsm.Always)
	m.AddEntranceCondition(nil, hfsm.Always)

	cfg := sink.OfKind(hfsm.ConfigurationError)
	if len(cfg) != 3 {
		t.Fatalf("ConfigurationError count = %d, want 3", len(cfg))
	}
	for _, d := range cfg {
		if !errors.Is(d.Err, hfsm.ErrNilState) {
			t.Errorf("Err = %v, want ErrNilState", d.Err)
		}
	}
	if len(m.Edges()) != 0 || len(m.Entrances()) != 0 {
		t.Error("rejected edges must not be registered")
	}
}

// sliceState cannot key a map.
type sliceState []int

func (sliceState) OnEnter() {}
func (sliceState) Update() {}
func (sliceState) OnExit() {}

func TestIncomparableStateRejected(t *testing.T) {
	m, sink := newMachine("root")
	a := testutil.NewProbe("A", nil)
	bad := sliceState{1, 2}

	m.AddTransition(a, bad, hfsm.Always)
	m.AddTransition(bad, a, hfsm.Always)
	m.AddEntranceCondition(bad, hfsm.Always)

	cfg := sink.OfKind(hfsm.ConfigurationError)
	if len(cfg) != 3 {
		t.Fatalf("ConfigurationError count = %d, want 3", len(cfg))
	}
	for _, d := range cfg {
		if !errors.Is(d.Err, hfsm.ErrIncomparableState) {
			t.Errorf("Err = %v, want ErrIncomparableState", d.Err)
		}
	}
	if len(m.Edges()) != 0 || len(m.Entrances()) != 0 {
		t.Error("rejected edges must not be registered")
	}

	m.AddEntranceCondition(a, hfsm.Always)
	m.OnEnter()
	m.Update()
	if got := mustCurrent(t, m); got != a {
		t.Errorf("CurrentState() = %s, want A", hfsm.NameOf(got))
	}
}

func TestNilPredicatePasses(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	m.AddEntranceCondition(a, nil)
	m.AddTransition(a, b, nil)

	m.OnEnter()
	m.Update()

	if got := mustCurrent(t, m); got != b {
		t.Errorf("CurrentState() = %s, want B", hfsm.NameOf(got))
	}
}

func TestTransitionValue(t *testing.T) {
	target := testutil.NewProbe("T", nil)
	flag := false
	tr := hfsm.NewTransition(func() bool { return flag }, target)

	if tr.Evaluate() {
		t.Error("Evaluate() = true, want false")
	}
	flag = true
	if !tr.Evaluate() {
		t.Error("Evaluate() = false, want true")
	}
	if tr.NextState() != target {
		t.Error("NextState() returned a different state")
	}
}

func TestPredicateCombinators(t *testing.T) {
	tests := []struct {
		name string
		p    hfsm.Predicate
		want bool
	}{
		{"always", hfsm.Always, true},
		{"never", hfsm.Never, false},
		{"not never", hfsm.Not(hfsm.Never), true},
		{"all true", hfsm.All(hfsm.Always, hfsm.Always), true},
		{"all mixed", hfsm.All(hfsm.Always, hfsm.Never), false},
		{"all empty", hfsm.All(), true},
		{"any mixed", hfsm.Any(hfsm.Never, hfsm.Always), true},
		{"any false", hfsm.Any(hfsm.Never, hfsm.Never), false},
		{"any empty", hfsm.Any(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

type plainState struct{}

func (*plainState) OnEnter() {}
func (*plainState) Update()  {}
func (*plainState) OnExit()  {}

func TestNameOf(t *testing.T) {
	tests := []struct {
		name  string
		state hfsm.State
		want  string
	}{
		{"nil", nil, "<unset>"},
		{"namer", testutil.NewProbe("Idle", nil), "Idle"},
		{"machine", hfsm.New("ground"), "ground"},
		{"type name", &plainState{}, "plainState"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hfsm.NameOf(tt.state); got != tt.want {
				t.Errorf("NameOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIntrospection(t *testing.T) {
	m, _ := newMachine("root")
	a := testutil.NewProbe("A", nil)
	b := testutil.NewProbe("B", nil)
	m.AddEntranceCondition(a, hfsm.Always)
	m.AddEntranceCondition(b, hfsm.Always)
	m.AddTransition(b, a, hfsm.Always)
	m.AddTransition(a, b, hfsm.Always)
	m.AddTransition(b, b, hfsm.Always)

	if got := m.Entrances(); !reflect.DeepEqual(got, []hfsm.State{a, b}) {
		t.Errorf("Entrances() = %v", got)
	}
	if got := m.Sources(); !reflect.DeepEqual(got, []hfsm.State{b, a}) {
		t.Errorf("Sources() = %v", got)
	}
	want := []hfsm.Edge{
		{From: b, To: a, Priority: 0},
		{From: b, To: b, Priority: 1},
		{From: a, To: b, Priority: 0},
	}
	if got := m.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
}

func TestCurrentPathFlat(t *testing.T) {
	m, _ := newMachine("ground")
	if got := m.CurrentPath(); got != "[ground]-><unset>" {
		t.Errorf("CurrentPath() = %q before enter", got)
	}
	m.AddEntranceCondition(testutil.NewProbe("Idle", nil), hfsm.Always)
	m.OnEnter()
	if got := m.CurrentPath(); got != "[ground]->Idle" {
		t.Errorf("CurrentPath() = %q, want [ground]->Idle", got)
	}
}
