package production

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/comalice/hfsm"
)

// PrometheusSink counts diagnostics and fired transitions.
type PrometheusSink struct {
	Diagnostics *prometheus.CounterVec
	Transitions *prometheus.CounterVec
}

var _ hfsm.Sink = (*PrometheusSink)(nil)

// NewPrometheusSink registers the hfsm counters with registerer. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewPrometheusSink(registerer prometheus.Registerer) *PrometheusSink {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &PrometheusSink{
		Diagnostics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hfsm_diagnostics_total",
				Help: "Total number of diagnostics reported, by machine and kind",
			},
			[]string{"machine", "kind"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hfsm_transitions_total",
				Help: "Total number of fired transitions, by machine and edge",
			},
			[]string{"machine", "from", "to"},
		),
	}
}

func (s *PrometheusSink) Report(d hfsm.Diagnostic) {
	s.Diagnostics.WithLabelValues(d.Machine, d.Kind.String()).Inc()
	if d.Kind == hfsm.TransitionFired {
		s.Transitions.WithLabelValues(d.Machine, d.From, d.To).Inc()
	}
}
