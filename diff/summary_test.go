package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeDeduplicates(t *testing.T) {
	anomalies := []Anomaly{
		newAnomaly(KindTypeMismatch, "$.age", "integer", "string"),
		newAnomaly(KindAdditionalField, "$.extra", "property declared in contract", `"x"`),
		// Same kind and location as the first entry, different detail.
		newAnomaly(KindTypeMismatch, "$.age", "integer", "boolean"),
		// Same location, different kind: both survive.
		newAnomaly(KindEnumViolation, "$.age", `one of ["a"]`, `"b"`),
	}

	s := Summarize(anomalies)

	require.Len(t, s.Anomalies, 3)
	assert.Equal(t, "string", s.Anomalies[0].Observed, "first occurrence wins")
	assert.Equal(t, KindAdditionalField, s.Anomalies[1].Kind)
	assert.Equal(t, KindEnumViolation, s.Anomalies[2].Kind)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Counts[KindTypeMismatch])
	assert.Equal(t, 1, s.Counts[KindAdditionalField])
	assert.Equal(t, 1, s.Counts[KindEnumViolation])
}

func TestSummarizeIdempotent(t *testing.T) {
	anomalies := []Anomaly{
		newAnomaly(KindMissingRequired, "$.id", "required property present", "absent"),
		newAnomaly(KindMissingRequired, "$.id", "required property present", "absent"),
		newAnomaly(KindTypeMismatch, "$.name", "string", "integer"),
	}

	once := Summarize(anomalies)
	twice := Summarize(once.Anomalies)

	assert.Equal(t, once, twice)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Empty())
	assert.Zero(t, s.Total)

	s = Summarize([]Anomaly{newAnomaly(KindTypeMismatch, "$", "string", "null")})
	assert.False(t, s.Empty())
}

func TestSummaryMaxSeverity(t *testing.T) {
	tests := []struct {
		name      string
		anomalies []Anomaly
		want      Severity
	}{
		{
			name: "error dominates",
			anomalies: []Anomaly{
				newAnomaly(KindAdditionalField, "$.a", "", ""),
				newAnomaly(KindTypeMismatch, "$.b", "", ""),
				newAnomaly(KindEnumViolation, "$.c", "", ""),
			},
			want: SeverityError,
		},
		{
			name: "warning over info",
			anomalies: []Anomaly{
				newAnomaly(KindAdditionalField, "$.a", "", ""),
				newAnomaly(KindEnumViolation, "$.c", "", ""),
			},
			want: SeverityWarning,
		},
		{
			name: "info only",
			anomalies: []Anomaly{
				newAnomaly(KindAdditionalField, "$.a", "", ""),
			},
			want: SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.anomalies).MaxSeverity())
		})
	}
}
