package contract

import "strings"

// Segment is one element of a path template: either a literal that must
// match exactly, or a named parameter that matches any single non-empty
// path segment.
type Segment struct {
	Literal string
	Param   string // non-empty means this segment is a parameter
}

// IsParam reports whether the segment is a template parameter.
func (s Segment) IsParam() bool {
	return s.Param != ""
}

// Template is a parsed path template such as /users/{id}/orders.
type Template struct {
	Raw      string
	Segments []Segment
}

// ParseTemplate splits a path template into segments. A segment of the
// form {name} becomes a parameter; everything else is a literal.
func ParseTemplate(path string) Template {
	t := Template{Raw: path}
	for _, seg := range splitPath(path) {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2 {
			t.Segments = append(t.Segments, Segment{Param: seg[1 : len(seg)-1]})
		} else {
			t.Segments = append(t.Segments, Segment{Literal: seg})
		}
	}
	return t
}

// Literals returns the number of literal (non-parameter) segments.
// Used to rank competing template matches.
func (t Template) Literals() int {
	n := 0
	for _, s := range t.Segments {
		if !s.IsParam() {
			n++
		}
	}
	return n
}

// MatchPath matches a concrete request path against the template.
// It returns the bound parameter values and true when every segment
// matches: literal segments must be equal, parameter segments accept any
// single non-empty segment. matched is the count of segments that agreed
// before the first mismatch, used to report the closest candidate when
// nothing matches.
func (t Template) MatchPath(path string) (params map[string]string, matched int, ok bool) {
	segs := splitPath(path)
	if len(segs) != len(t.Segments) {
		// Count leading agreement anyway so near-misses rank sensibly.
		limit := min(len(segs), len(t.Segments))
		for i := 0; i < limit; i++ {
			if !segmentMatches(t.Segments[i], segs[i]) {
				break
			}
			matched++
		}
		return nil, matched, false
	}

	params = make(map[string]string)
	for i, ts := range t.Segments {
		if !segmentMatches(ts, segs[i]) {
			return nil, matched, false
		}
		matched++
		if ts.IsParam() {
			params[ts.Param] = segs[i]
		}
	}
	return params, matched, true
}

func segmentMatches(ts Segment, seg string) bool {
	if ts.IsParam() {
		return seg != ""
	}
	return ts.Literal == seg
}

// splitPath splits a path on "/" ignoring leading and trailing slashes.
// The root path "/" yields no segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
