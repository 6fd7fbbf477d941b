package rotation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepStartedTotal      *prometheus.CounterVec
	stepCompletedTotal    *prometheus.CounterVec
	stepDuration          *prometheus.HistogramVec
	verificationAttempts  *prometheus.CounterVec
	staleKeysDeletedTotal prometheus.Counter
	accessKeysMintedTotal prometheus.Counter

	metricsOnce sync.Once
)

// Metrics records rotation metrics. All methods are safe on a nil
// receiver so the rotator can run without metrics wired.
type Metrics struct{}

// NewMetrics returns a Metrics handle and registers the collectors on
// first use.
func NewMetrics() *Metrics {
	InitMetrics()
	return &Metrics{}
}

// InitMetrics registers all Prometheus collectors. Safe to call more than
// once.
func InitMetrics() {
	metricsOnce.Do(func() {
		stepStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sesrotate_step_started_total",
				Help: "Total number of rotation steps started",
			},
			[]string{"step"},
		)

		stepCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sesrotate_step_completed_total",
				Help: "Total number of rotation steps completed",
			},
			[]string{"step", "status"},
		)

		stepDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sesrotate_step_duration_seconds",
				Help:    "Duration of rotation steps in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"step"},
		)

		verificationAttempts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sesrotate_verification_attempts_total",
				Help: "Total number of live verification attempts",
			},
			[]string{"result"},
		)

		staleKeysDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sesrotate_stale_access_keys_deleted_total",
				Help: "Total number of stale access keys deleted before minting",
			},
		)

		accessKeysMintedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sesrotate_access_keys_minted_total",
				Help: "Total number of access keys created by rotation",
			},
		)
	})
}

// RecordStepStarted records the start of a rotation step.
func (m *Metrics) RecordStepStarted(step Step) {
	if m == nil {
		return
	}
	stepStartedTotal.WithLabelValues(string(step)).Inc()
}

// RecordStepCompleted records the outcome and duration of a rotation step.
func (m *Metrics) RecordStepCompleted(step Step, status string, seconds float64) {
	if m == nil {
		return
	}
	stepCompletedTotal.WithLabelValues(string(step), status).Inc()
	stepDuration.WithLabelValues(string(step)).Observe(seconds)
}

// RecordVerificationAttempt records one live authentication attempt.
func (m *Metrics) RecordVerificationAttempt(result string) {
	if m == nil {
		return
	}
	verificationAttempts.WithLabelValues(result).Inc()
}

// RecordStaleKeyDeleted records the deletion of a non-current access key.
func (m *Metrics) RecordStaleKeyDeleted() {
	if m == nil {
		return
	}
	staleKeysDeletedTotal.Inc()
}

// RecordKeyMinted records the creation of a new access key.
func (m *Metrics) RecordKeyMinted() {
	if m == nil {
		return
	}
	accessKeysMintedTotal.Inc()
}
