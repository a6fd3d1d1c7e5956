package contract

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// resolver builds SchemaNode trees from the concrete-syntax document,
// expanding $ref references. Resolution is cached by canonical reference
// string ("doc.yaml#/components/schemas/User") for the lifetime of the
// owning Document. A reference encountered during its own resolution finds
// the in-flight placeholder in the cache and returns that same pointer, so
// cyclic schemas become self-referential nodes instead of recursing
// forever.
type resolver struct {
	set   *Set
	cache map[string]*SchemaNode
}

func newResolver(set *Set) *resolver {
	return &resolver{set: set, cache: make(map[string]*SchemaNode)}
}

// schema resolves the schema at node n, read in the context of document
// docName. A bare $ref resolves to the shared cached node; returns nil for
// a nil node (no schema declared).
func (r *resolver) schema(docName string, n *yaml.Node) (*SchemaNode, error) {
	if n = deref(n); n == nil {
		return nil, nil
	}
	if ref := bareRef(n); ref != "" {
		return r.refNode(docName, ref)
	}
	out := &SchemaNode{}
	if err := r.fill(docName, n, out); err != nil {
		return nil, err
	}
	return out, nil
}

// refNode resolves a reference string to its shared node. The placeholder
// is registered in the cache before the target is walked, so a reference
// met during its own resolution terminates at the placeholder.
func (r *resolver) refNode(docName, ref string) (*SchemaNode, error) {
	targetDoc, ptr, err := splitRef(docName, ref)
	if err != nil {
		return nil, err
	}
	canonical := targetDoc + "#" + ptr

	if cached, ok := r.cache[canonical]; ok {
		return cached, nil
	}

	doc, ok := r.set.docs[targetDoc]
	if !ok {
		return nil, fmt.Errorf("%w: %q (from %s)", ErrExternalDocument, targetDoc, ref)
	}

	target, err := lookupPointer(doc.root, ptr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	node := &SchemaNode{Ref: canonical}
	r.cache[canonical] = node
	if err := r.fill(targetDoc, target, node); err != nil {
		return nil, err
	}
	return node, nil
}

// fill populates into from the schema at node n. It exists separately from
// schema so that the cache placeholder pointer is the node the finished
// schema ends up in.
func (r *resolver) fill(docName string, n *yaml.Node, into *SchemaNode) error {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		// An empty or non-mapping schema constrains nothing.
		return nil
	}

	if ref := mappingValue(n, "$ref"); ref != nil {
		// $ref with siblings: per OpenAPI the reference wins. The target
		// fields are copied; a degenerate pure-ref cycle copies an empty
		// placeholder, which correctly constrains nothing.
		resolved, err := r.refNode(docName, ref.Value)
		if err != nil {
			return err
		}
		saved := into.Ref
		*into = *resolved
		if saved != "" {
			into.Ref = saved
		}
		return nil
	}

	var (
		typeNode  *yaml.Node
		nullTyped bool
	)

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		val := deref(n.Content[i+1])
		switch key {
		case "type":
			typeNode = val
		case "nullable":
			if val.Value == "true" {
				into.Nullable = true
			}
		case "properties":
			if err := r.fillProperties(docName, val, into); err != nil {
				return err
			}
		case "required":
			for _, item := range sequenceItems(val) {
				into.Required = append(into.Required, item.Value)
			}
		case "additionalProperties":
			if err := r.fillAdditional(docName, val, into); err != nil {
				return err
			}
		case "items":
			items, err := r.schema(docName, val)
			if err != nil {
				return err
			}
			into.Items = items
		case "enum":
			items := sequenceItems(val)
			into.Enum = make([]any, 0, len(items))
			for _, item := range items {
				var v any
				if err := item.Decode(&v); err != nil {
					return fmt.Errorf("decode enum value: %w", err)
				}
				into.Enum = append(into.Enum, v)
			}
		case "oneOf", "anyOf":
			for _, item := range sequenceItems(val) {
				branch, err := r.schema(docName, item)
				if err != nil {
					return err
				}
				into.Branches = append(into.Branches, branch)
			}
		}
	}

	if typeNode != nil {
		if err := applyType(typeNode, into, &nullTyped); err != nil {
			return err
		}
	}
	if nullTyped {
		into.Nullable = true
	}

	// Kind inference when type is absent or composed.
	switch {
	case len(into.Branches) > 0:
		into.Kind = KindUnion
	case into.Kind != KindAny:
		// Explicit type already applied.
	case len(into.Properties) > 0 || into.Required != nil || into.AdditionalSchema != nil:
		into.Kind = KindObject
	case into.Items != nil:
		into.Kind = KindArray
	}

	if into.Kind == KindObject {
		into.propIndex = make(map[string]*SchemaNode, len(into.Properties))
		for _, p := range into.Properties {
			into.propIndex[p.Name] = p.Schema
		}
	}
	return nil
}

// applyType interprets the schema "type" keyword, which is a scalar in
// OAS 3.0 and may be an array in OAS 3.1.
func applyType(typeNode *yaml.Node, into *SchemaNode, nullTyped *bool) error {
	var names []string
	switch typeNode.Kind {
	case yaml.ScalarNode:
		names = []string{typeNode.Value}
	case yaml.SequenceNode:
		for _, item := range sequenceItems(typeNode) {
			if item.Value == "null" {
				*nullTyped = true
				continue
			}
			names = append(names, item.Value)
		}
	default:
		return fmt.Errorf("unsupported type declaration")
	}

	switch len(names) {
	case 0:
		if *nullTyped {
			into.Kind = KindNull
			*nullTyped = false
			into.Nullable = true
		}
	case 1:
		into.Kind = kindFromName(names[0])
	default:
		// Multiple non-null types behave like a union of scalar branches.
		into.Kind = KindUnion
		for _, name := range names {
			into.Branches = append(into.Branches, &SchemaNode{Kind: kindFromName(name)})
		}
	}
	return nil
}

func kindFromName(name string) Kind {
	switch name {
	case "object":
		return KindObject
	case "array":
		return KindArray
	case "string":
		return KindString
	case "integer":
		return KindInteger
	case "number":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "null":
		return KindNull
	default:
		return KindAny
	}
}

func (r *resolver) fillProperties(docName string, val *yaml.Node, into *SchemaNode) error {
	if val == nil || val.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		name := val.Content[i].Value
		prop, err := r.schema(docName, val.Content[i+1])
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		into.Properties = append(into.Properties, Property{Name: name, Schema: prop})
	}
	return nil
}

func (r *resolver) fillAdditional(docName string, val *yaml.Node, into *SchemaNode) error {
	switch {
	case val == nil:
	case val.Kind == yaml.ScalarNode && val.Value == "false":
		into.Additional = AdditionalForbidden
	case val.Kind == yaml.ScalarNode && val.Value == "true":
		into.Additional = AdditionalAllowed
	case val.Kind == yaml.MappingNode:
		s, err := r.schema(docName, val)
		if err != nil {
			return err
		}
		into.Additional = AdditionalTyped
		into.AdditionalSchema = s
	}
	return nil
}

// bareRef returns the reference string when n is a mapping containing only
// a $ref key, empty otherwise.
func bareRef(n *yaml.Node) string {
	if n.Kind == yaml.MappingNode && len(n.Content) == 2 && n.Content[0].Value == "$ref" {
		return n.Content[1].Value
	}
	return ""
}

// splitRef splits a reference into (document, pointer). A fragment-only
// reference stays in the current document.
func splitRef(docName, ref string) (string, string, error) {
	idx := strings.Index(ref, "#")
	if idx < 0 {
		return "", "", fmt.Errorf("reference %q has no fragment", ref)
	}
	doc := ref[:idx]
	ptr := ref[idx+1:]
	if doc == "" {
		doc = docName
	}
	if ptr == "" || ptr[0] != '/' {
		return "", "", fmt.Errorf("reference %q: fragment must be a JSON pointer", ref)
	}
	return doc, ptr, nil
}

// lookupPointer walks a JSON Pointer (RFC 6901) through the yaml tree.
func lookupPointer(root *yaml.Node, ptr string) (*yaml.Node, error) {
	cur := deref(root)
	if ptr == "" {
		return cur, nil
	}
	for _, raw := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		token := unescapeToken(raw)
		cur = deref(cur)
		switch {
		case cur == nil:
			return nil, fmt.Errorf("pointer %q: nil node", ptr)
		case cur.Kind == yaml.MappingNode:
			next := mappingValue(cur, token)
			if next == nil {
				return nil, fmt.Errorf("pointer %q: key %q not found", ptr, token)
			}
			cur = next
		case cur.Kind == yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(cur.Content) {
				return nil, fmt.Errorf("pointer %q: bad index %q", ptr, token)
			}
			cur = cur.Content[idx]
		default:
			return nil, fmt.Errorf("pointer %q: cannot descend into scalar at %q", ptr, token)
		}
	}
	return deref(cur), nil
}

func unescapeToken(t string) string {
	t = strings.ReplaceAll(t, "~1", "/")
	return strings.ReplaceAll(t, "~0", "~")
}

// deref unwraps document and alias nodes.
func deref(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// mappingValue returns the value node for a key in a mapping, nil if absent.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return deref(m.Content[i+1])
		}
	}
	return nil
}

func sequenceItems(n *yaml.Node) []*yaml.Node {
	n = deref(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	return n.Content
}
