package diff

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/specdrift/contract"
)

// Compare walks a decoded instance value against a resolved schema node
// and returns every detected anomaly in pre-order traversal order. It is a
// pure function; instance object keys are visited in sorted order so the
// output is byte-stable across runs.
//
// A nil schema declares nothing and produces no anomalies.
func Compare(schema *contract.SchemaNode, value any) []Anomaly {
	return CompareAt(schema, value, "$")
}

// CompareAt is Compare with an explicit root location, for callers
// validating a fragment that sits below the instance root.
func CompareAt(schema *contract.SchemaNode, value any, location string) []Anomaly {
	if schema == nil {
		return nil
	}
	var out []Anomaly
	walk(schema, value, location, &out)
	return out
}

func walk(schema *contract.SchemaNode, value any, loc string, out *[]Anomaly) {
	// Null handling comes first: a null instance either passes outright
	// (nullable node or null union branch) or is a type mismatch. The
	// enum check is deliberately skipped for accepted nulls.
	if value == nil {
		if !schema.AcceptsNull() {
			*out = append(*out, newAnomaly(KindTypeMismatch, loc, schema.Describe(), "null"))
		}
		return
	}

	if schema.Kind == contract.KindUnion {
		walkUnion(schema, value, loc, out)
		return
	}

	if !kindAccepts(schema.Kind, value) {
		*out = append(*out, newAnomaly(KindTypeMismatch, loc, schema.Describe(), contract.ValueKind(value)))
		return
	}

	if schema.HasEnum() && !enumContains(schema.Enum, value) {
		*out = append(*out, newAnomaly(KindEnumViolation, loc,
			"one of "+formatEnum(schema.Enum), contract.FormatValue(value)))
	}

	switch v := value.(type) {
	case map[string]any:
		if schema.Kind == contract.KindObject {
			walkObject(schema, v, loc, out)
		}
	case []any:
		if schema.Kind == contract.KindArray && schema.Items != nil {
			for i, elem := range v {
				walk(schema.Items, elem, loc+"["+strconv.Itoa(i)+"]", out)
			}
		}
	}
}

func walkObject(schema *contract.SchemaNode, obj map[string]any, loc string, out *[]Anomaly) {
	// Missing required names first, in schema declaration order.
	for _, name := range schema.Required {
		if _, present := obj[name]; !present {
			*out = append(*out, newAnomaly(KindMissingRequired, joinKey(loc, name),
				"required property present", "absent"))
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		child := joinKey(loc, key)
		if prop, ok := schema.Property(key); ok {
			walk(prop, obj[key], child, out)
			continue
		}
		switch schema.Additional {
		case contract.AdditionalForbidden:
			*out = append(*out, newAnomaly(KindAdditionalField, child,
				"property declared in contract", contract.FormatValue(obj[key])))
		case contract.AdditionalTyped:
			walk(schema.AdditionalSchema, obj[key], child, out)
		case contract.AdditionalAllowed:
			// The contract tolerates undeclared properties.
		}
	}
}

// walkUnion validates the instance against every branch. One or more
// passing branches means no anomaly: the comparator is deliberately
// permissive toward ambiguous unions, since the goal is real drift, not
// union strictness. Zero passing branches collapse into a single
// TYPE_MISMATCH summarizing each branch's first failure.
func walkUnion(schema *contract.SchemaNode, value any, loc string, out *[]Anomaly) {
	failures := make([]string, 0, len(schema.Branches))
	for _, branch := range schema.Branches {
		branchAnomalies := CompareAt(branch, value, loc)
		if len(branchAnomalies) == 0 {
			return
		}
		first := branchAnomalies[0]
		failures = append(failures, fmt.Sprintf("%s: %s at %s", branch.Describe(), first.Kind, first.Location))
	}
	*out = append(*out, newAnomaly(KindTypeMismatch, loc,
		schema.Describe(),
		fmt.Sprintf("%s (no branch matched: %s)", contract.ValueKind(value), strings.Join(failures, "; "))))
}

// kindAccepts implements directional type compatibility: "number" accepts
// an integer-typed instance value, the reverse does not hold.
func kindAccepts(kind contract.Kind, value any) bool {
	observed := contract.ValueKind(value)
	switch kind {
	case contract.KindAny:
		return true
	case contract.KindNumber:
		return observed == "number" || observed == "integer"
	case contract.KindNull:
		return observed == "null"
	default:
		return kind.String() == observed
	}
}

func enumContains(declared []any, value any) bool {
	for _, d := range declared {
		if contract.EqualValue(d, value) {
			return true
		}
	}
	return false
}

func formatEnum(declared []any) string {
	parts := make([]string, len(declared))
	for i, d := range declared {
		parts[i] = contract.FormatValue(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var bareKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// joinKey extends an instance location by an object key, quoting keys that
// would be ambiguous in dotted form.
func joinKey(loc, key string) string {
	if bareKeyRe.MatchString(key) {
		return loc + "." + key
	}
	return loc + "[" + strconv.Quote(key) + "]"
}
