package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		segments int
		params   []string
	}{
		{name: "root", path: "/", segments: 0},
		{name: "literals only", path: "/users/search", segments: 2},
		{name: "single param", path: "/users/{id}", segments: 2, params: []string{"id"}},
		{name: "mixed", path: "/users/{id}/orders/{order_id}", segments: 4, params: []string{"id", "order_id"}},
		{name: "empty braces are literal", path: "/users/{}", segments: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := ParseTemplate(tt.path)
			assert.Len(t, tmpl.Segments, tt.segments)

			var params []string
			for _, s := range tmpl.Segments {
				if s.IsParam() {
					params = append(params, s.Param)
				}
			}
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestTemplateMatchPath(t *testing.T) {
	tmpl := ParseTemplate("/users/{id}/orders")

	t.Run("binds parameter values", func(t *testing.T) {
		params, matched, ok := tmpl.MatchPath("/users/42/orders")
		assert.True(t, ok)
		assert.Equal(t, 3, matched)
		assert.Equal(t, map[string]string{"id": "42"}, params)
	})

	t.Run("segment count must be equal", func(t *testing.T) {
		_, _, ok := tmpl.MatchPath("/users/42")
		assert.False(t, ok)
	})

	t.Run("literal mismatch", func(t *testing.T) {
		_, matched, ok := tmpl.MatchPath("/users/42/invoices")
		assert.False(t, ok)
		assert.Equal(t, 2, matched)
	})

	t.Run("parameter rejects empty segment", func(t *testing.T) {
		_, _, ok := tmpl.MatchPath("/users//orders")
		assert.False(t, ok)
	})
}
