package pipeline

import "github.com/c360studio/specdrift/reason"

// DefaultAutoUpdateThreshold is the minimum confidence a decision needs
// before its changes are applied without review.
const DefaultAutoUpdateThreshold = 0.85

// AutoUpdate reports whether a decision qualifies for an automatic
// document rewrite: an UPDATE_SPEC classification at or above the
// confidence threshold whose every change is backward compatible.
// Anything weaker routes to review.
func AutoUpdate(d *reason.Decision, threshold float64) bool {
	if d == nil || d.Classification != reason.ClassUpdateSpec {
		return false
	}
	if d.Confidence < threshold {
		return false
	}
	if len(d.Changes) == 0 {
		return false
	}
	for _, change := range d.Changes {
		if !change.BackwardCompatible {
			return false
		}
	}
	return true
}
