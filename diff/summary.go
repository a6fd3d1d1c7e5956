package diff

// Summary is the deduplicated, ordered aggregation of an anomaly list.
// An empty Summary is the single "no drift" terminal state: callers must
// short-circuit all downstream processing (no reasoning call, no update).
type Summary struct {
	// Anomalies keeps first-occurrence detection order after dedupe.
	Anomalies []Anomaly `json:"anomalies"`
	// Counts tallies deduplicated anomalies by kind.
	Counts map[Kind]int `json:"counts_by_kind"`
	// Total is the deduplicated anomaly count.
	Total int `json:"total"`
}

// Summarize deduplicates anomalies by (kind, location), keeping the first
// occurrence in its original detection-order position, and computes the
// per-kind counts. Summarize is idempotent: applying it to an already
// deduplicated list returns the same result.
func Summarize(anomalies []Anomaly) Summary {
	seen := make(map[string]struct{}, len(anomalies))
	summary := Summary{Counts: make(map[Kind]int)}
	for _, a := range anomalies {
		if _, dup := seen[a.key()]; dup {
			continue
		}
		seen[a.key()] = struct{}{}
		summary.Anomalies = append(summary.Anomalies, a)
		summary.Counts[a.Kind]++
		summary.Total++
	}
	return summary
}

// Empty reports whether the summary is the terminal no-drift state.
func (s Summary) Empty() bool {
	return s.Total == 0
}

// MaxSeverity returns the highest severity present, or "" when empty.
func (s Summary) MaxSeverity() Severity {
	rank := map[Severity]int{SeverityInfo: 1, SeverityWarning: 2, SeverityError: 3}
	var max Severity
	for _, a := range s.Anomalies {
		if rank[a.Severity] > rank[max] {
			max = a.Severity
		}
	}
	return max
}
