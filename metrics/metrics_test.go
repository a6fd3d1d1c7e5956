package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specdrift/diff"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestMetricsRecordAndScrape(t *testing.T) {
	m := New()

	m.ObserveCheck("no_drift")
	m.ObserveCheck("update_spec")
	m.ObserveCheck("update_spec")
	m.ObserveAnomalies(diff.Summary{
		Counts: map[diff.Kind]int{
			diff.KindTypeMismatch:    2,
			diff.KindAdditionalField: 1,
		},
	})
	m.ObserveProbe(120 * time.Millisecond)
	m.ObserveLLMCall("ok")
	m.ObserveUpdateApplied()

	body := scrape(t, m)
	assert.Contains(t, body, `specdrift_checks_total{outcome="no_drift"} 1`)
	assert.Contains(t, body, `specdrift_checks_total{outcome="update_spec"} 2`)
	assert.Contains(t, body, `specdrift_anomalies_total{kind="TYPE_MISMATCH"} 2`)
	assert.Contains(t, body, `specdrift_anomalies_total{kind="ADDITIONAL_FIELD"} 1`)
	assert.Contains(t, body, `specdrift_llm_calls_total{outcome="ok"} 1`)
	assert.Contains(t, body, `specdrift_updates_applied_total 1`)
	assert.Contains(t, body, "specdrift_probe_duration_seconds_count 1")
}

func TestMetricsNilReceiverIsInert(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCheck("error")
		m.ObserveAnomalies(diff.Summary{Counts: map[diff.Kind]int{diff.KindEnumViolation: 1}})
		m.ObserveProbe(time.Second)
		m.ObserveLLMCall("error")
		m.ObserveUpdateApplied()
	})
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.ObserveCheck("api_bug")

	assert.Contains(t, scrape(t, a), `specdrift_checks_total{outcome="api_bug"} 1`)
	assert.NotContains(t, scrape(t, b), "specdrift_checks_total")
}
