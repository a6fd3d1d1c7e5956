package contract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind classifies a resolved schema node.
type Kind int

const (
	// KindAny is a schema with no type constraint.
	KindAny Kind = iota
	KindObject
	KindArray
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindNull
	// KindUnion is a oneOf/anyOf composition; branches hold the
	// alternatives.
	KindUnion
)

// String returns the OpenAPI-style name for the kind.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindUnion:
		return "union"
	default:
		return "any"
	}
}

// AdditionalPolicy controls how object properties absent from the declared
// property set are treated.
type AdditionalPolicy int

const (
	// AdditionalAllowed permits undeclared properties without anomaly
	// (the OpenAPI default).
	AdditionalAllowed AdditionalPolicy = iota
	// AdditionalForbidden flags undeclared properties as drift.
	AdditionalForbidden
	// AdditionalTyped validates undeclared properties against
	// SchemaNode.AdditionalSchema.
	AdditionalTyped
)

// Property is a declared object property. Properties keep document
// declaration order and have unique names within a node.
type Property struct {
	Name   string
	Schema *SchemaNode
}

// SchemaNode is a resolved schema fragment with all references expanded to
// concrete structure. Nodes built from a reference cycle are
// self-referential rather than infinite. A SchemaNode is frozen once its
// owning Document finishes loading and is safe for concurrent reads.
type SchemaNode struct {
	Kind Kind

	// Ref is the canonical reference string this node was resolved from,
	// empty for inline schemas. Used only for diagnostics.
	Ref string

	// Object fields.
	Properties       []Property
	Required         []string
	Additional       AdditionalPolicy
	AdditionalSchema *SchemaNode

	// Array field.
	Items *SchemaNode

	// Union branches (oneOf/anyOf), in declaration order.
	Branches []*SchemaNode

	// Enum is the declared value set, nil when unconstrained.
	Enum []any

	// Nullable is set by `nullable: true` (OAS 3.0), a "null" member of a
	// type array (OAS 3.1), or a null union branch.
	Nullable bool

	propIndex map[string]*SchemaNode
}

// Property returns the schema for a declared property name.
func (n *SchemaNode) Property(name string) (*SchemaNode, bool) {
	s, ok := n.propIndex[name]
	return s, ok
}

// HasEnum reports whether the node declares a value set.
func (n *SchemaNode) HasEnum() bool {
	return n.Enum != nil
}

// AcceptsNull reports whether a null instance value passes this node:
// either the node itself is nullable (or the null kind), or any union
// branch accepts null.
func (n *SchemaNode) AcceptsNull() bool {
	if n.Nullable || n.Kind == KindNull || n.Kind == KindAny {
		return true
	}
	for _, b := range n.Branches {
		if b.AcceptsNull() {
			return true
		}
	}
	return false
}

// Describe returns a short human-readable descriptor for expected/observed
// reporting ("object", "string", "oneOf(string|integer)").
func (n *SchemaNode) Describe() string {
	if n.Kind == KindUnion {
		parts := make([]string, 0, len(n.Branches))
		for _, b := range n.Branches {
			parts = append(parts, b.Describe())
		}
		return "oneOf(" + strings.Join(parts, "|") + ")"
	}
	if n.Nullable && n.Kind != KindAny {
		return n.Kind.String() + "|null"
	}
	return n.Kind.String()
}

// ValueKind names the JSON primitive kind of a decoded instance value, as
// produced by encoding/json with UseNumber.
func ValueKind(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number:
		if isIntegral(string(val)) {
			return "integer"
		}
		return "number"
	case float64:
		if val == float64(int64(val)) {
			return "integer"
		}
		return "number"
	case int, int64:
		return "integer"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// isIntegral reports whether a JSON number literal denotes an integer.
// Scientific notation and decimal points make it a number even when the
// value happens to be whole; this mirrors how the document author wrote it.
func isIntegral(lit string) bool {
	return !strings.ContainsAny(lit, ".eE")
}

// EqualValue compares a schema-declared value (decoded from YAML) with an
// instance value (decoded from JSON). Numeric values compare by value
// regardless of representation.
func EqualValue(declared, observed any) bool {
	if declared == nil || observed == nil {
		return declared == nil && observed == nil
	}
	df, dok := toFloat(declared)
	of, ook := toFloat(observed)
	if dok || ook {
		return dok && ook && df == of
	}
	switch d := declared.(type) {
	case bool:
		o, ok := observed.(bool)
		return ok && d == o
	case string:
		o, ok := observed.(string)
		return ok && d == o
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatValue renders a value compactly for anomaly descriptors.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case json.Number:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		return "array[" + strconv.Itoa(len(val)) + "]"
	case map[string]any:
		return "object{" + strconv.Itoa(len(val)) + " keys}"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "?"
		}
		return string(b)
	}
}
