// Package reason turns a non-empty anomaly summary into a classified
// drift decision by consulting a language model, validating the returned
// shape before anything downstream consumes it.
package reason

import (
	"fmt"
	"strings"
)

// Classification is the reasoning verdict for one drifted check.
type Classification string

const (
	// ClassUpdateSpec means the live API is the source of truth and the
	// contract should be amended to match it.
	ClassUpdateSpec Classification = "UPDATE_SPEC"
	// ClassAPIBug means the contract is right and the API regressed.
	ClassAPIBug Classification = "API_BUG"
	// ClassNeedsReview means the model could not decide with confidence,
	// or its response failed shape validation.
	ClassNeedsReview Classification = "NEEDS_REVIEW"
)

// ChangeType categorizes what a proposed contract edit does. The
// taxonomy drives the backward-compatibility gate: widening changes are
// safe to auto-apply, narrowing ones are not.
type ChangeType string

const (
	ChangeAddEnumValue   ChangeType = "ADD_ENUM_VALUE"
	ChangeMakeOptional   ChangeType = "MAKE_OPTIONAL"
	ChangeTypeWidening   ChangeType = "TYPE_WIDENING"
	ChangeAddField       ChangeType = "ADD_FIELD"
	ChangeRemoveRequired ChangeType = "REMOVE_REQUIRED"
	ChangeDocumentError  ChangeType = "DOCUMENT_ERROR"
	ChangeAddExample     ChangeType = "ADD_EXAMPLE"
)

// Op is a fragment edit operation, RFC 6902 style.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// ChangeInstruction is one proposed edit to the contract document. Target
// is an RFC 6901 JSON Pointer into the document root.
type ChangeInstruction struct {
	Target             string     `json:"target"`
	Op                 Op         `json:"op"`
	Value              any        `json:"value,omitempty"`
	Rationale          string     `json:"rationale"`
	BackwardCompatible bool       `json:"backward_compatible"`
	Type               ChangeType `json:"change_type,omitempty"`
}

// Decision is the validated reasoning output for one check.
type Decision struct {
	Classification Classification      `json:"classification"`
	Confidence     float64             `json:"confidence"`
	Changes        []ChangeInstruction `json:"changes,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	// ContractViolation is set when the model response failed shape
	// validation and the decision was coerced to NEEDS_REVIEW.
	ContractViolation bool `json:"contract_violation,omitempty"`
}

// Validate checks the decision shape. A failure here means the model
// response violated the collaborator contract for this single check.
func (d *Decision) Validate() error {
	switch d.Classification {
	case ClassUpdateSpec, ClassAPIBug, ClassNeedsReview:
	default:
		return fmt.Errorf("unknown classification %q", d.Classification)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", d.Confidence)
	}
	if d.Classification != ClassUpdateSpec && len(d.Changes) > 0 {
		return fmt.Errorf("classification %s must not carry changes", d.Classification)
	}
	for i, c := range d.Changes {
		if err := c.validate(); err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
	}
	return nil
}

func (c *ChangeInstruction) validate() error {
	if !strings.HasPrefix(c.Target, "/") {
		return fmt.Errorf("target %q is not a JSON pointer", c.Target)
	}
	switch c.Op {
	case OpAdd, OpReplace:
		if c.Value == nil {
			return fmt.Errorf("%s at %s requires a value", c.Op, c.Target)
		}
	case OpRemove:
		if c.Value != nil {
			return fmt.Errorf("remove at %s must not carry a value", c.Target)
		}
	default:
		return fmt.Errorf("unknown operation %q", c.Op)
	}
	switch c.Type {
	case "", ChangeAddEnumValue, ChangeMakeOptional, ChangeTypeWidening,
		ChangeAddField, ChangeRemoveRequired, ChangeDocumentError, ChangeAddExample:
	default:
		return fmt.Errorf("unknown change type %q", c.Type)
	}
	return nil
}

// NeedsReview builds the fallback decision used when the collaborator
// response cannot be trusted.
func NeedsReview(reason string) *Decision {
	return &Decision{
		Classification:    ClassNeedsReview,
		Confidence:        0,
		Notes:             reason,
		ContractViolation: true,
	}
}
