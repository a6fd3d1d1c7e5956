// Package update applies proposed contract edits onto the concrete
// yaml syntax of a loaded document, so regions no instruction touches
// keep their original comments, key order, and style.
package update

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/specdrift/contract"
	"github.com/c360studio/specdrift/reason"
)

// Outcome states for one instruction in the audit trail.
const (
	OutcomeApplied   = "applied"
	OutcomeDiscarded = "discarded"
)

// AuditEntry records what happened to one instruction. Discarded
// instructions are never silently dropped.
type AuditEntry struct {
	Instruction reason.ChangeInstruction `json:"instruction"`
	Outcome     string                   `json:"outcome"`
	Reason      string                   `json:"reason,omitempty"`
}

// Updated is the result of applying an instruction batch: new document
// text plus the per-instruction audit list in original order.
type Updated struct {
	Text  []byte       `json:"text"`
	Audit []AuditEntry `json:"audit"`
}

// Applied counts instructions that made it into the new text.
func (u *Updated) Applied() int {
	n := 0
	for _, e := range u.Audit {
		if e.Outcome == OutcomeApplied {
			n++
		}
	}
	return n
}

// Apply runs the ordered instruction batch against a fresh parse of the
// document text and returns the re-serialized result. The loaded document
// is never mutated. When two instructions target the same pointer the
// later one wins and the earlier is discarded as superseded. An
// instruction whose target does not resolve is discarded with reason
// "target not found"; one bad instruction never blocks the others.
func Apply(doc *contract.Document, instructions []reason.ChangeInstruction) (*Updated, error) {
	return ApplyText(doc.Name, doc.Text(), instructions)
}

// ApplyText is Apply over raw document text. Callers chaining several
// batches feed each result's Text into the next call so earlier edits
// survive.
func ApplyText(name string, text []byte, instructions []reason.ChangeInstruction) (*Updated, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return nil, fmt.Errorf("reparsing %s: %w", name, err)
	}

	lastForTarget := make(map[string]int, len(instructions))
	for i, ins := range instructions {
		lastForTarget[ins.Target] = i
	}

	updated := &Updated{Audit: make([]AuditEntry, 0, len(instructions))}
	for i, ins := range instructions {
		if lastForTarget[ins.Target] != i {
			updated.Audit = append(updated.Audit, AuditEntry{
				Instruction: ins,
				Outcome:     OutcomeDiscarded,
				Reason:      fmt.Sprintf("superseded by later instruction for %s", ins.Target),
			})
			continue
		}
		entry := AuditEntry{Instruction: ins, Outcome: OutcomeApplied}
		if err := applyOne(&root, ins); err != nil {
			entry.Outcome = OutcomeDiscarded
			entry.Reason = discardReason(err)
		}
		updated.Audit = append(updated.Audit, entry)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("serializing %s: %w", name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing %s: %w", name, err)
	}
	updated.Text = buf.Bytes()
	return updated, nil
}

func applyOne(root *yaml.Node, ins reason.ChangeInstruction) error {
	tokens, err := splitPointer(ins.Target)
	if err != nil {
		return err
	}
	container, token, err := parent(root, tokens)
	if err != nil {
		return err
	}
	switch ins.Op {
	case reason.OpRemove:
		return removeMember(container, token)
	case reason.OpAdd:
		value, err := valueNode(ins.Value)
		if err != nil {
			return err
		}
		return setMember(container, token, value)
	case reason.OpReplace:
		value, err := valueNode(ins.Value)
		if err != nil {
			return err
		}
		return replaceMember(container, token, value)
	default:
		return fmt.Errorf("unknown operation %q", ins.Op)
	}
}

func discardReason(err error) string {
	if errors.Is(err, errTargetNotFound) {
		return "target not found"
	}
	return err.Error()
}
