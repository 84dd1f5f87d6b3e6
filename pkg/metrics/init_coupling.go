package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCouplingMetrics() {
	r.SlavesAttempted = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_slaves_attempted_total",
			Help: "Slave nodes submitted to the coupling resolver",
		},
		[]string{"pass"},
	)

	r.ConstraintsEmitted = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_constraints_emitted_total",
			Help: "Multi-point constraints written to the output",
		},
		[]string{"pass"},
	)

	r.SlavesSkipped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_slaves_skipped_total",
			Help: "Slave nodes that produced no constraint",
		},
		[]string{"pass", "reason"},
	)

	r.EscalationRetries = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anchorlink_escalation_retries",
			Help:    "Radius doublings needed per resolved slave",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8},
		},
		[]string{"pass"},
	)

	r.FallbacksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_knn_fallbacks_total",
			Help: "Slaves resolved through the k-nearest fallback",
		},
		[]string{"pass"},
	)

	r.NearestDistance = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anchorlink_nearest_master_distance",
			Help:    "Distance from slave to its nearest master in model units",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"pass"},
	)

	r.MastersPerConstraint = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anchorlink_masters_per_constraint",
			Help:    "Number of master nodes per emitted constraint",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		},
		[]string{"pass"},
	)
}

func (r *Registry) initArtifactMetrics() {
	r.ArtifactBytes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_artifact_bytes_total",
			Help: "Bytes written per artifact sink",
		},
		[]string{"sink"},
	)

	r.ArtifactWrites = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorlink_artifact_writes_total",
			Help: "Artifact writes by sink and status",
		},
		[]string{"sink", "status"},
	)
}
