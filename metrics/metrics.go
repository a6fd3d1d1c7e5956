// Package metrics exposes Prometheus instrumentation for verification
// runs. A nil *Metrics is valid everywhere and records nothing, so
// callers never branch on whether metrics are enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/specdrift/diff"
)

// Metrics holds the collectors for one process. It registers on a
// private registry so tests can build as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal    *prometheus.CounterVec
	anomaliesTotal *prometheus.CounterVec
	probeDuration  prometheus.Histogram
	llmCallsTotal  *prometheus.CounterVec
	updatesApplied prometheus.Counter
}

// New creates the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specdrift",
			Name:      "checks_total",
			Help:      "Verification checks by outcome.",
		}, []string{"outcome"}),
		anomaliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specdrift",
			Name:      "anomalies_total",
			Help:      "Detected anomalies by kind.",
		}, []string{"kind"}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "specdrift",
			Name:      "probe_duration_seconds",
			Help:      "Live API probe round-trip time.",
			Buckets:   prometheus.DefBuckets,
		}),
		llmCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specdrift",
			Name:      "llm_calls_total",
			Help:      "Reasoning collaborator calls by outcome.",
		}, []string{"outcome"}),
		updatesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "specdrift",
			Name:      "updates_applied_total",
			Help:      "Contract documents rewritten by auto-update.",
		}),
	}
}

// ObserveCheck counts one finished check by its outcome label
// ("no_drift", "update_spec", "api_bug", "needs_review", "error").
func (m *Metrics) ObserveCheck(outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnomalies counts the deduplicated anomalies of one summary.
func (m *Metrics) ObserveAnomalies(summary diff.Summary) {
	if m == nil {
		return
	}
	for kind, n := range summary.Counts {
		m.anomaliesTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// ObserveProbe records one probe round trip.
func (m *Metrics) ObserveProbe(d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.Observe(d.Seconds())
}

// ObserveLLMCall counts one reasoning call ("ok" or "error").
func (m *Metrics) ObserveLLMCall(outcome string) {
	if m == nil {
		return
	}
	m.llmCallsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpdateApplied counts one auto-applied document update.
func (m *Metrics) ObserveUpdateApplied() {
	if m == nil {
		return
	}
	m.updatesApplied.Inc()
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server builds an HTTP server exposing /metrics on addr. The caller
// owns its lifecycle.
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
