package update

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// errTargetNotFound marks a pointer that does not resolve in the current
// document. Apply converts it into a discarded audit entry instead of
// failing the batch.
var errTargetNotFound = errors.New("target not found")

// splitPointer breaks an RFC 6901 JSON Pointer into unescaped tokens.
func splitPointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", pointer)
	}
	raw := strings.Split(pointer[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		t = strings.ReplaceAll(t, "~1", "/")
		tokens[i] = strings.ReplaceAll(t, "~0", "~")
	}
	return tokens, nil
}

// unwrap steps through document and alias nodes to the underlying value.
func unwrap(n *yaml.Node) *yaml.Node {
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

// child resolves one pointer token against a mapping or sequence node.
func child(n *yaml.Node, token string) (*yaml.Node, error) {
	n = unwrap(n)
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == token {
				return n.Content[i+1], nil
			}
		}
		return nil, fmt.Errorf("no key %q: %w", token, errTargetNotFound)
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(n.Content) {
			return nil, fmt.Errorf("no index %q: %w", token, errTargetNotFound)
		}
		return n.Content[idx], nil
	default:
		return nil, fmt.Errorf("cannot descend into scalar at %q: %w", token, errTargetNotFound)
	}
}

// parent walks all but the last token and returns the containing node
// plus the final token.
func parent(root *yaml.Node, tokens []string) (*yaml.Node, string, error) {
	if len(tokens) == 0 {
		return nil, "", fmt.Errorf("pointer addresses the document root: %w", errTargetNotFound)
	}
	n := root
	for _, t := range tokens[:len(tokens)-1] {
		next, err := child(n, t)
		if err != nil {
			return nil, "", err
		}
		n = next
	}
	return unwrap(n), tokens[len(tokens)-1], nil
}

// valueNode encodes a plain Go value as a fresh yaml node tree.
func valueNode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return &n, nil
}

// setMember adds or overwrites token in a mapping, or inserts/appends in
// a sequence ("-" appends).
func setMember(container *yaml.Node, token string, value *yaml.Node) error {
	switch container.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(container.Content); i += 2 {
			if container.Content[i].Value == token {
				container.Content[i+1] = value
				return nil
			}
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: token}
		container.Content = append(container.Content, key, value)
		return nil
	case yaml.SequenceNode:
		if token == "-" {
			container.Content = append(container.Content, value)
			return nil
		}
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx > len(container.Content) {
			return fmt.Errorf("no index %q: %w", token, errTargetNotFound)
		}
		container.Content = append(container.Content[:idx],
			append([]*yaml.Node{value}, container.Content[idx:]...)...)
		return nil
	default:
		return fmt.Errorf("cannot add member %q to scalar: %w", token, errTargetNotFound)
	}
}

// replaceMember swaps the value at token; the member must already exist.
func replaceMember(container *yaml.Node, token string, value *yaml.Node) error {
	switch container.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(container.Content); i += 2 {
			if container.Content[i].Value == token {
				container.Content[i+1] = value
				return nil
			}
		}
		return fmt.Errorf("no key %q: %w", token, errTargetNotFound)
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(container.Content) {
			return fmt.Errorf("no index %q: %w", token, errTargetNotFound)
		}
		container.Content[idx] = value
		return nil
	default:
		return fmt.Errorf("cannot replace member %q of scalar: %w", token, errTargetNotFound)
	}
}

// removeMember deletes the member at token; the member must exist.
func removeMember(container *yaml.Node, token string) error {
	switch container.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(container.Content); i += 2 {
			if container.Content[i].Value == token {
				container.Content = append(container.Content[:i], container.Content[i+2:]...)
				return nil
			}
		}
		return fmt.Errorf("no key %q: %w", token, errTargetNotFound)
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(container.Content) {
			return fmt.Errorf("no index %q: %w", token, errTargetNotFound)
		}
		container.Content = append(container.Content[:idx], container.Content[idx+1:]...)
		return nil
	default:
		return fmt.Errorf("cannot remove member %q from scalar: %w", token, errTargetNotFound)
	}
}
