package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"classification": "API_BUG"}`,
			want:    `{"classification": "API_BUG"}`,
		},
		{
			name:    "markdown fence",
			content: "Here is my answer:\n```json\n{\"confidence\": 0.9}\n```\nDone.",
			want:    `{"confidence": 0.9}`,
		},
		{
			name:    "fence without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "surrounding prose",
			content: `I believe the answer is {"a": 1} as shown.`,
			want:    `{"a": 1}`,
		},
		{
			name:    "no object",
			content: "I cannot answer that.",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestExtractJSONCleansArtifacts(t *testing.T) {
	content := "```json\n" + `{
  "classification": "UPDATE_SPEC", // the API added a value
  "changes": [
    {"target": "/a", "value": "http://example.com/x"},
  ],
}` + "\n```"

	cleaned := ExtractJSON(content)
	require.NotEmpty(t, cleaned)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(cleaned), &decoded), "cleaned output must be valid JSON")
	assert.Equal(t, "UPDATE_SPEC", decoded["classification"])

	changes, ok := decoded["changes"].([]any)
	require.True(t, ok)
	change := changes[0].(map[string]any)
	assert.Equal(t, "http://example.com/x", change["value"], "URLs inside strings survive comment stripping")
}
