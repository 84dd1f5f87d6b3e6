package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.AnchorsFound = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "anchorlink_anchors_found",
			Help: "Number of anchor components found in the last run",
		},
	)

	r.InvalidComponents = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_invalid_components_total",
			Help: "Anchor components rejected during endpoint classification",
		},
		[]string{"fault"},
	)

	r.RejectedElements = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_rejected_elements_total",
			Help: "Anchor elements dropped before graph building",
		},
		[]string{"reason"},
	)

	r.PhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anchorlink_phase_duration_seconds",
			Help:    "Duration of each pipeline phase in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"phase"},
	)

	r.PipelineRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"status"},
	)

	r.PipelineSkipRate = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "anchorlink_pipeline_skip_rate",
			Help: "Fraction of slaves and components skipped in the last run",
		},
	)
}
