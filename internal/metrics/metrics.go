// Package metrics exposes prometheus instrumentation for the deployment core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors owned by the core services.
type Metrics struct {
	Deployments     *prometheus.CounterVec
	SweepCleaned    prometheus.Counter
	SweepLocked     prometheus.Counter
	SweepPasses     prometheus.Counter
	DegradedSecrets prometheus.Counter
}

// New registers the core collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deployments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodepilot_deployments_total",
			Help: "Deployment attempts by outcome.",
		}, []string{"status"}),
		SweepCleaned: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodepilot_sweep_cleaned_total",
			Help: "Marked directories removed by the sweep.",
		}),
		SweepLocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodepilot_sweep_locked_total",
			Help: "Marked directories that survived a sweep pass.",
		}),
		SweepPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodepilot_sweep_passes_total",
			Help: "Completed sweep passes.",
		}),
		DegradedSecrets: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodepilot_degraded_secret_reads_total",
			Help: "Secret opens that fell back to the stored value.",
		}),
	}
}

// NewNop returns metrics backed by a throwaway registry, for tests and
// callers that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
