package certificate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Issuance outcomes
const (
	OutcomeIssued   = "issued"
	OutcomeRecorded = "recorded"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Metrics records issuance counts, stage latency and artifact size
type Metrics struct {
	Issuances     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	ArtifactBytes prometheus.Histogram
}

// NewMetrics registers the issuance metrics on reg.
// A nil registerer creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issuances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certificate_issuances_total",
			Help: "Total number of issuance requests by outcome",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certificate_stage_duration_seconds",
			Help:    "Duration of issuance pipeline stages",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		ArtifactBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certificate_artifact_bytes",
			Help:    "Size of published certificate PDFs",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		}),
	}
}

// ObserveStage records the duration of a stage.
// Call with time.Now() at the start of the stage.
func (m *Metrics) ObserveStage(stage Stage, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage.String()).Observe(time.Since(start).Seconds())
}

// IncOutcome counts a finished issuance
func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Issuances.WithLabelValues(outcome).Inc()
}

// ObserveArtifact records the size of a published artifact
func (m *Metrics) ObserveArtifact(size int) {
	if m == nil {
		return
	}
	m.ArtifactBytes.Observe(float64(size))
}
