// Package pipeline orchestrates verification runs: probe, match,
// compare, reason, and update for each target, with bounded fan-out
// across a document's entries.
package pipeline

import (
	"time"

	"github.com/c360studio/specdrift/diff"
	"github.com/c360studio/specdrift/reason"
	"github.com/c360studio/specdrift/update"
)

// Check outcomes carried on reports and metrics labels.
const (
	OutcomeNoDrift     = "no_drift"
	OutcomeUpdateSpec  = "update_spec"
	OutcomeAPIBug      = "api_bug"
	OutcomeNeedsReview = "needs_review"
	OutcomeError       = "error"
)

// Report is the full record of one check, suitable for rendering and
// for publishing as JSON.
type Report struct {
	ID       string `json:"id"`
	Endpoint string `json:"endpoint"`
	SpecPath string `json:"spec_path"`
	Status   int    `json:"status,omitempty"`
	Outcome  string `json:"outcome"`

	Summary  *diff.Summary    `json:"summary,omitempty"`
	Decision *reason.Decision `json:"decision,omitempty"`

	// AutoUpdate reports that the decision qualified for an automatic
	// document rewrite; Updated reports that the file was written.
	AutoUpdate  bool                `json:"auto_update_recommended"`
	Updated     bool                `json:"updated"`
	UpdatedText string              `json:"updated_text,omitempty"`
	Audit       []update.AuditEntry `json:"audit,omitempty"`

	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
	DurationMS int64     `json:"duration_ms"`
}

// outcomeFor maps a validated decision onto a report outcome.
func outcomeFor(d *reason.Decision) string {
	switch d.Classification {
	case reason.ClassUpdateSpec:
		return OutcomeUpdateSpec
	case reason.ClassAPIBug:
		return OutcomeAPIBug
	default:
		return OutcomeNeedsReview
	}
}
