package production

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/testutil"
)

func TestPrometheusSink_CountsMachineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	idle := testutil.NewProbe("idle", nil)
	walk := testutil.NewProbe("walk", nil)
	moving := false
	m := hfsm.New("ground", hfsm.WithSink(sink))
	m.AddEntranceCondition(idle, hfsm.Always)
	m.AddTransition(idle, walk, func() bool { return moving })
	m.AddTransition(walk, idle, func() bool { return !moving })
	m.OnEnter()

	moving = true
	m.Update()
	moving = false
	m.Update()
	moving = true
	m.Update()

	if got := promtest.ToFloat64(sink.Transitions.WithLabelValues("ground", "idle", "walk")); got != 2 {
		t.Errorf("idle->walk = %v want 2", got)
	}
	if got := promtest.ToFloat64(sink.Transitions.WithLabelValues("ground", "walk", "idle")); got != 1 {
		t.Errorf("walk->idle = %v want 1", got)
	}
	if got := promtest.ToFloat64(sink.Diagnostics.WithLabelValues("ground", "TransitionFired")); got != 3 {
		t.Errorf("TransitionFired = %v want 3", got)
	}
}

func TestPrometheusSink_Diagnostics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	m := hfsm.New("broken", hfsm.WithSink(sink))
	m.OnEnter()
	m.Update()

	if got := promtest.ToFloat64(sink.Diagnostics.WithLabelValues("broken", "ConfigurationError")); got != 1 {
		t.Errorf("ConfigurationError = %v want 1", got)
	}
	if got := promtest.ToFloat64(sink.Diagnostics.WithLabelValues("broken", "InvariantViolation")); got != 1 {
		t.Errorf("InvariantViolation = %v want 1", got)
	}
	if n := promtest.CollectAndCount(sink.Transitions); n != 0 {
		t.Errorf("transition series = %d want 0", n)
	}
}
