// Package contract models a parsed OpenAPI 3.x document and resolves
// probed requests to the schema they are contracted against. A Document
// keeps two synchronized views of the same text: the yaml.Node concrete
// syntax (preserved for format-keeping edits) and resolved SchemaNode
// trees (used for diffing). Both are frozen once loading completes, so any
// number of comparisons may run against one Document concurrently.
package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// methodOrder is the fixed probe order for operations within a path item.
var methodOrder = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

var statusPatternRe = regexp.MustCompile(`^([1-5][0-9][0-9]|[1-5][xX][xX]|default)$`)

// Response pairs a status pattern with its resolved body schema. Schema is
// nil when the response declares no JSON content (e.g. 204).
type Response struct {
	Pattern string
	Schema  *SchemaNode
}

// Parameter is a declared operation parameter.
type Parameter struct {
	Name     string
	In       string // "path", "query", "header", "cookie"
	Required bool
	Schema   *SchemaNode
}

// Entry is one (path template, method) contract entry.
type Entry struct {
	Template    Template
	Method      string
	OperationID string
	Parameters  []Parameter
	RequestBody *SchemaNode
	// Responses keeps document declaration order; matching prefers exact
	// codes, then class wildcards, then "default".
	Responses []Response

	opNode *yaml.Node // operation mapping, for fragment extraction
}

// StatusPatterns returns the declared status patterns in document order.
func (e *Entry) StatusPatterns() []string {
	out := make([]string, len(e.Responses))
	for i, r := range e.Responses {
		out[i] = r.Pattern
	}
	return out
}

// ResponseFor resolves a concrete status code against the declared
// patterns: exact code first, then class wildcard, then "default".
func (e *Entry) ResponseFor(status int) (Response, bool) {
	exact := strconv.Itoa(status)
	for _, r := range e.Responses {
		if r.Pattern == exact {
			return r, true
		}
	}
	class := exact[:1]
	for _, r := range e.Responses {
		if len(r.Pattern) == 3 && strings.EqualFold(r.Pattern[1:], "xx") && strings.HasPrefix(r.Pattern, class) {
			return r, true
		}
	}
	for _, r := range e.Responses {
		if r.Pattern == "default" {
			return r, true
		}
	}
	return Response{}, false
}

// Document is a loaded contract document: concrete syntax plus the entry
// index and reference cache, both built once at load and read-only after.
type Document struct {
	Name    string
	Title   string
	Version string // OpenAPI version declared by the document

	root    *yaml.Node
	text    []byte
	entries []*Entry
	set     *Set
}

// Set is a group of documents loaded together so cross-document references
// resolve. A Set belongs to one verification session.
type Set struct {
	docs  map[string]*Document
	order []string
}

// NewSet creates an empty document set.
func NewSet() *Set {
	return &Set{docs: make(map[string]*Document)}
}

// Add parses a document and registers it under name. References are not
// resolved until Build, so documents may reference each other regardless
// of Add order.
func (s *Set) Add(name string, text []byte) error {
	if _, exists := s.docs[name]; exists {
		return &ParseError{Name: name, Err: fmt.Errorf("document already loaded")}
	}
	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return &ParseError{Name: name, Err: err}
	}
	body := deref(&root)
	if body == nil || body.Kind != yaml.MappingNode {
		return &ParseError{Name: name, Err: fmt.Errorf("document is not a mapping")}
	}
	s.docs[name] = &Document{Name: name, root: &root, text: text, set: s}
	s.order = append(s.order, name)
	return nil
}

// Build indexes entries and resolves every referenced schema in all added
// documents. After Build the set and its documents are frozen.
func (s *Set) Build() error {
	for _, name := range s.order {
		if err := s.docs[name].build(); err != nil {
			return err
		}
	}
	return nil
}

// Document returns a loaded document by name.
func (s *Set) Document(name string) (*Document, bool) {
	d, ok := s.docs[name]
	return d, ok
}

// Load parses and indexes a standalone document.
func Load(name string, text []byte) (*Document, error) {
	s := NewSet()
	if err := s.Add(name, text); err != nil {
		return nil, err
	}
	if err := s.Build(); err != nil {
		return nil, err
	}
	d, _ := s.Document(name)
	return d, nil
}

// LoadFile reads and loads a standalone document from disk. Documents that
// reference siblings must be loaded together through a Set instead.
func LoadFile(path string) (*Document, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Name: path, Err: err}
	}
	return Load(filepath.Base(path), text)
}

// Text returns the original document text.
func (d *Document) Text() []byte {
	return d.text
}

// Root exposes the concrete-syntax backing for the Fragment Updater.
// Callers other than the updater must treat it as read-only.
func (d *Document) Root() *yaml.Node {
	return d.root
}

// Entries returns the contract entries in document declaration order.
func (d *Document) Entries() []*Entry {
	return d.entries
}

func (d *Document) build() error {
	body := deref(d.root)

	versionNode := mappingValue(body, "openapi")
	if versionNode == nil {
		return &ParseError{Name: d.Name, Err: fmt.Errorf("missing openapi version field")}
	}
	d.Version = versionNode.Value
	if !strings.HasPrefix(d.Version, "3.") {
		return &ParseError{Name: d.Name, Err: fmt.Errorf("unsupported OpenAPI version %q (only 3.x)", d.Version)}
	}
	if info := mappingValue(body, "info"); info != nil {
		if title := mappingValue(info, "title"); title != nil {
			d.Title = title.Value
		}
	}

	res := newResolver(d.set)

	paths := mappingValue(body, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return nil // a document with no paths declares no entries
	}

	for i := 0; i+1 < len(paths.Content); i += 2 {
		rawPath := paths.Content[i].Value
		item := deref(paths.Content[i+1])
		if item == nil || item.Kind != yaml.MappingNode {
			continue
		}
		itemParams, err := d.buildParameters(res, mappingValue(item, "parameters"))
		if err != nil {
			return &ParseError{Name: d.Name, Err: fmt.Errorf("path %s: %w", rawPath, err)}
		}
		for _, method := range methodOrder {
			opNode := mappingValue(item, method)
			if opNode == nil || opNode.Kind != yaml.MappingNode {
				continue
			}
			entry, err := d.buildEntry(res, rawPath, method, opNode, itemParams)
			if err != nil {
				return &ParseError{Name: d.Name, Err: fmt.Errorf("%s %s: %w", strings.ToUpper(method), rawPath, err)}
			}
			d.entries = append(d.entries, entry)
		}
	}
	return nil
}

func (d *Document) buildEntry(res *resolver, rawPath, method string, opNode *yaml.Node, inherited []Parameter) (*Entry, error) {
	entry := &Entry{
		Template: ParseTemplate(rawPath),
		Method:   strings.ToUpper(method),
		opNode:   opNode,
	}
	if id := mappingValue(opNode, "operationId"); id != nil {
		entry.OperationID = id.Value
	}

	entry.Parameters = append(entry.Parameters, inherited...)
	opParams, err := d.buildParameters(res, mappingValue(opNode, "parameters"))
	if err != nil {
		return nil, err
	}
	entry.Parameters = append(entry.Parameters, opParams...)

	if reqBody := mappingValue(opNode, "requestBody"); reqBody != nil {
		schema, err := res.schema(d.Name, jsonContentSchema(reqBody))
		if err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}
		entry.RequestBody = schema
	}

	responses := mappingValue(opNode, "responses")
	if responses == nil || responses.Kind != yaml.MappingNode {
		return entry, nil
	}
	for i := 0; i+1 < len(responses.Content); i += 2 {
		pattern := responses.Content[i].Value
		if !statusPatternRe.MatchString(pattern) {
			return nil, fmt.Errorf("invalid response status pattern %q", pattern)
		}
		schema, err := res.schema(d.Name, jsonContentSchema(deref(responses.Content[i+1])))
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", pattern, err)
		}
		entry.Responses = append(entry.Responses, Response{Pattern: pattern, Schema: schema})
	}
	return entry, nil
}

func (d *Document) buildParameters(res *resolver, node *yaml.Node) ([]Parameter, error) {
	var params []Parameter
	for _, item := range sequenceItems(node) {
		item = deref(item)
		if item == nil || item.Kind != yaml.MappingNode {
			continue
		}
		p := Parameter{}
		if n := mappingValue(item, "name"); n != nil {
			p.Name = n.Value
		}
		if n := mappingValue(item, "in"); n != nil {
			p.In = n.Value
		}
		if n := mappingValue(item, "required"); n != nil {
			p.Required = n.Value == "true"
		}
		schema, err := res.schema(d.Name, mappingValue(item, "schema"))
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		p.Schema = schema
		params = append(params, p)
	}
	return params, nil
}

// jsonContentSchema digs content["application/json"].schema out of a
// requestBody or response mapping, nil when the entry has no JSON content.
func jsonContentSchema(n *yaml.Node) *yaml.Node {
	content := mappingValue(n, "content")
	if content == nil || content.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(content.Content); i += 2 {
		mediaType := content.Content[i].Value
		if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
			return mappingValue(deref(content.Content[i+1]), "schema")
		}
	}
	return nil
}

// Match resolves a probed request to its contract entry and the schema for
// the observed status. Among templates that match the path it prefers the
// one with the most literal segments, breaking ties by declaration order.
//
// When the entry matches but the status is documented nowhere, Match
// returns the entry together with a *StatusNotDocumentedError: callers
// turn that into a STATUS_MISMATCH anomaly rather than failing the check.
func (d *Document) Match(method, requestPath string, status int) (*Entry, *SchemaNode, error) {
	method = strings.ToUpper(method)

	var (
		best        *Entry
		bestLits    = -1
		closest     string
		closestSegs = -1
	)
	for _, e := range d.entries {
		if e.Method != method {
			continue
		}
		_, matched, ok := e.Template.MatchPath(requestPath)
		if !ok {
			if matched > closestSegs {
				closestSegs = matched
				closest = e.Template.Raw
			}
			continue
		}
		if lits := e.Template.Literals(); lits > bestLits {
			best = e
			bestLits = lits
		}
	}
	if best == nil {
		if closestSegs < 0 {
			closestSegs = 0
		}
		return nil, nil, &NoMatchError{Method: method, Path: requestPath, Closest: closest, Matched: closestSegs}
	}

	resp, ok := best.ResponseFor(status)
	if !ok {
		return best, nil, &StatusNotDocumentedError{Status: status, Documented: best.StatusPatterns()}
	}
	return best, resp.Schema, nil
}

// FragmentYAML renders the minimal document fragment declaring one entry,
// suitable for inclusion in a reasoning prompt or a review report.
func (d *Document) FragmentYAML(e *Entry) (string, error) {
	method := strings.ToLower(e.Method)
	fragment := map[string]any{
		"paths": map[string]any{
			e.Template.Raw: map[string]any{method: e.opNode},
		},
	}
	out, err := yaml.Marshal(fragment)
	if err != nil {
		return "", fmt.Errorf("marshal fragment for %s %s: %w", e.Method, e.Template.Raw, err)
	}
	return string(out), nil
}
