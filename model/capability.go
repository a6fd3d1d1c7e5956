// Package model provides capability-based model selection for drift
// reconciliation. Callers ask for a capability ("reconcile", "fast")
// instead of a model name; the registry resolves it to available
// endpoints with fallback chains and circuit-breaker health tracking.
package model

// Capability is a semantic model-selection key.
type Capability string

const (
	// CapabilityReconcile is for careful drift classification, where a
	// wrong UPDATE_SPEC verdict rewrites a contract document.
	CapabilityReconcile Capability = "reconcile"

	// CapabilityFast is for cheap summaries and low-stakes text.
	CapabilityFast Capability = "fast"
)

// IsValid reports whether the capability is known.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityReconcile, CapabilityFast:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}
