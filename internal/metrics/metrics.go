// Package metrics implements the MetricsRecorder boundary the core emits
// counters and histograms through. It is the one concrete component the
// (out of scope) performance-monitoring sidecar would consume; this package
// does not implement the sidecar itself.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the interface every component depends on, so tests can
// substitute a no-op implementation without pulling in prometheus.
type Recorder interface {
	SessionTransition(from, to string)
	QueueChunkDropped(sessionID string)
	CRMSyncOutcome(crmSystem, outcome string)
	ObserveSummaryLatency(seconds float64)
}

// PrometheusRecorder is the production Recorder, backed by client_golang.
type PrometheusRecorder struct {
	sessionTransitions *prometheus.CounterVec
	queueDrops         *prometheus.CounterVec
	crmSyncOutcomes    *prometheus.CounterVec
	summaryLatency     prometheus.Histogram
}

// NewPrometheusRecorder constructs and registers all metrics against the
// given registerer (typically prometheus.DefaultRegisterer).
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_session_transitions_total",
			Help: "Count of session state machine transitions.",
		}, []string{"from", "to"}),
		queueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_audio_queue_drops_total",
			Help: "Count of oldest-chunk drops due to queue saturation.",
		}, []string{"session_id"}),
		crmSyncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_crm_sync_outcomes_total",
			Help: "Count of CRM sync attempts by system and outcome.",
		}, []string{"crm_system", "outcome"}),
		summaryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meeting_summary_generation_seconds",
			Help:    "Latency of draft summary generation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.sessionTransitions, r.queueDrops, r.crmSyncOutcomes, r.summaryLatency)
	return r
}

func (r *PrometheusRecorder) SessionTransition(from, to string) {
	r.sessionTransitions.WithLabelValues(from, to).Inc()
}

func (r *PrometheusRecorder) QueueChunkDropped(sessionID string) {
	r.queueDrops.WithLabelValues(sessionID).Inc()
}

func (r *PrometheusRecorder) CRMSyncOutcome(crmSystem, outcome string) {
	r.crmSyncOutcomes.WithLabelValues(crmSystem, outcome).Inc()
}

func (r *PrometheusRecorder) ObserveSummaryLatency(seconds float64) {
	r.summaryLatency.Observe(seconds)
}

// Noop satisfies Recorder without recording anything; used where a caller
// has not wired metrics (e.g. unit tests).
type Noop struct{}

func (Noop) SessionTransition(from, to string)         {}
func (Noop) QueueChunkDropped(sessionID string)         {}
func (Noop) CRMSyncOutcome(crmSystem, outcome string)   {}
func (Noop) ObserveSummaryLatency(seconds float64)      {}
