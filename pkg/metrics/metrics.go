package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordPhase records how long a pipeline phase took
func (r *Registry) RecordPhase(phase string, duration time.Duration) {
	r.PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordResolution records one successfully coupled slave
func (r *Registry) RecordResolution(pass string, retries, masters int, fallback bool, nearest float64) {
	r.SlavesAttempted.WithLabelValues(pass).Inc()
	r.EscalationRetries.WithLabelValues(pass).Observe(float64(retries))
	r.MastersPerConstraint.WithLabelValues(pass).Observe(float64(masters))
	r.NearestDistance.WithLabelValues(pass).Observe(nearest)
	if fallback {
		r.FallbacksTotal.WithLabelValues(pass).Inc()
	}
}

// RecordSkip records a slave that produced no constraint
func (r *Registry) RecordSkip(pass, reason string) {
	r.SlavesAttempted.WithLabelValues(pass).Inc()
	r.SlavesSkipped.WithLabelValues(pass, reason).Inc()
}

// RecordPruned records a constraint removed by the integrity check
func (r *Registry) RecordPruned(pass, reason string) {
	r.SlavesSkipped.WithLabelValues(pass, reason).Inc()
}

// RecordEmitted records the constraints that survived validation
func (r *Registry) RecordEmitted(pass string, n int) {
	r.ConstraintsEmitted.WithLabelValues(pass).Add(float64(n))
}

// RecordGraph records graph-building results
func (r *Registry) RecordGraph(anchors int, rejected map[string]int, invalid map[string]int) {
	r.AnchorsFound.Set(float64(anchors))
	for reason, n := range rejected {
		r.RejectedElements.WithLabelValues(reason).Add(float64(n))
	}
	for fault, n := range invalid {
		r.InvalidComponents.WithLabelValues(fault).Add(float64(n))
	}
}

// RecordRun records the outcome of a pipeline run
func (r *Registry) RecordRun(status string, skipRate float64) {
	r.PipelineRunsTotal.WithLabelValues(status).Inc()
	r.PipelineSkipRate.Set(skipRate)
}

// RecordArtifact records an artifact write
func (r *Registry) RecordArtifact(sink string, bytes int64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		r.ArtifactBytes.WithLabelValues(sink).Add(float64(bytes))
	}
	r.ArtifactWrites.WithLabelValues(sink, status).Inc()
}

// WriteTextfile writes every metric in the Prometheus text format, for the
// node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
