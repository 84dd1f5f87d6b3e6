package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for a pipeline run
type Registry struct {
	// Graph metrics
	AnchorsFound      prometheus.Gauge
	InvalidComponents *prometheus.CounterVec
	RejectedElements  *prometheus.CounterVec
	PhaseDuration     *prometheus.HistogramVec
	PipelineRunsTotal *prometheus.CounterVec
	PipelineSkipRate  prometheus.Gauge

	// Coupling metrics
	SlavesAttempted      *prometheus.CounterVec
	ConstraintsEmitted   *prometheus.CounterVec
	SlavesSkipped        *prometheus.CounterVec
	EscalationRetries    *prometheus.HistogramVec
	FallbacksTotal       *prometheus.CounterVec
	NearestDistance      *prometheus.HistogramVec
	MastersPerConstraint *prometheus.HistogramVec

	// Artifact metrics
	ArtifactBytes  *prometheus.CounterVec
	ArtifactWrites *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initGraphMetrics()
	r.initCouplingMetrics()
	r.initArtifactMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
