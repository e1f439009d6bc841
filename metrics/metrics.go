// Package metrics exposes workflow counters on the prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow counts advance outcomes. It satisfies the engine's Recorder.
type Workflow struct {
	advances *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func NewWorkflow(reg prometheus.Registerer) *Workflow {
	factory := promauto.With(reg)
	return &Workflow{
		advances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_stage_advances_total",
			Help: "Successful workflow stage transitions by target stage.",
		}, []string{"stage"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_stage_failures_total",
			Help: "Failed workflow advances by reason.",
		}, []string{"reason"}),
	}
}

func (w *Workflow) Advanced(stage string) {
	w.advances.WithLabelValues(stage).Inc()
}

func (w *Workflow) Failed(reason string) {
	w.failures.WithLabelValues(reason).Inc()
}
