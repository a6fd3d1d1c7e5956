// Package diff structurally compares a decoded response body against a
// resolved contract schema and aggregates the resulting anomalies. All of
// it is pure computation: the same schema and instance always produce the
// same ordered anomaly list.
package diff

import (
	"fmt"
	"strings"
)

// Kind classifies a detected anomaly.
type Kind string

const (
	KindTypeMismatch    Kind = "TYPE_MISMATCH"
	KindMissingRequired Kind = "MISSING_REQUIRED"
	KindAdditionalField Kind = "ADDITIONAL_FIELD"
	KindEnumViolation   Kind = "ENUM_VIOLATION"
	KindStatusMismatch  Kind = "STATUS_MISMATCH"
)

// Severity ranks how strongly an anomaly suggests real contract drift.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// severityFor is the fixed kind→severity mapping. Additional fields are
// informational (the OpenAPI default tolerates them), enum drift is a
// warning (often a legitimately new value), everything else is an error.
func severityFor(kind Kind) Severity {
	switch kind {
	case KindAdditionalField:
		return SeverityInfo
	case KindEnumViolation:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Anomaly is one observed deviation between a live response and the
// contract. Anomalies are value objects; identity is (Kind, Location).
type Anomaly struct {
	Kind     Kind     `json:"kind"`
	Location string   `json:"location"` // root-relative instance pointer, e.g. $.items[0].status
	Expected string   `json:"expected"`
	Observed string   `json:"observed"`
	Severity Severity `json:"severity"`
}

func newAnomaly(kind Kind, location, expected, observed string) Anomaly {
	return Anomaly{
		Kind:     kind,
		Location: location,
		Expected: expected,
		Observed: observed,
		Severity: severityFor(kind),
	}
}

// String renders the anomaly for logs and reports.
func (a Anomaly) String() string {
	return fmt.Sprintf("[%s] %s: expected %s, observed %s", a.Kind, a.Location, a.Expected, a.Observed)
}

// key identifies an anomaly for deduplication.
func (a Anomaly) key() string {
	return string(a.Kind) + "\x00" + a.Location
}

// StatusAnomaly builds the STATUS_MISMATCH anomaly for a response status
// documented nowhere in the matched entry. It flows through the same
// classification path as body drift rather than failing the check.
func StatusAnomaly(status int, documented []string) Anomaly {
	return newAnomaly(KindStatusMismatch, "$.status_code",
		"one of ["+strings.Join(documented, ", ")+"]",
		fmt.Sprintf("%d", status))
}
