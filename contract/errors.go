package contract

import (
	"errors"
	"fmt"
)

// ErrExternalDocument is returned when a reference points into a document
// that was never registered with the Set.
var ErrExternalDocument = errors.New("referenced document not loaded")

// ParseError reports a malformed contract document. It is fatal for the
// verification session that tried to load the document.
type ParseError struct {
	Name string // document name as registered with the Set
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse contract document %q: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NoMatchError reports that no contract entry matches a probed request.
// It is fatal for that single target only; batch runs skip and continue.
type NoMatchError struct {
	Method string
	Path   string

	// Closest is the template that agreed on the most leading segments,
	// empty when the document declares no entries for the method.
	Closest string
	// Matched is how many segments agreed with Closest.
	Matched int
}

func (e *NoMatchError) Error() string {
	if e.Closest == "" {
		return fmt.Sprintf("no contract entry matches %s %s", e.Method, e.Path)
	}
	return fmt.Sprintf("no contract entry matches %s %s (closest: %s, %d segments matched)",
		e.Method, e.Path, e.Closest, e.Matched)
}

// StatusNotDocumentedError reports a response status documented nowhere in
// the matched entry. Callers convert it into a STATUS_MISMATCH anomaly
// rather than treating it as a failure: an undocumented status is itself
// the drift being hunted.
type StatusNotDocumentedError struct {
	Status     int
	Documented []string // declared status patterns, in document order
}

func (e *StatusNotDocumentedError) Error() string {
	return fmt.Sprintf("status %d not documented (declared: %v)", e.Status, e.Documented)
}
