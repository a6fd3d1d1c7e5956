package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specdrift/llm"
)

func TestAnthropicBuildURL(t *testing.T) {
	p := &AnthropicProvider{}
	assert.Equal(t, "https://api.anthropic.com/v1/messages", p.BuildURL(""))
	assert.Equal(t, "https://proxy.internal/v1/messages", p.BuildURL("https://proxy.internal/"))
}

func TestAnthropicBuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}
	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", []llm.Message{
		{Role: "system", Content: "be conservative"},
		{Role: "user", Content: "classify this drift"},
	}, nil, 0)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	assert.Equal(t, "be conservative", req["system"], "system message lifted to top level")
	assert.Equal(t, float64(4096), req["max_tokens"], "default applied")
	assert.NotContains(t, req, "temperature")

	messages := req["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropicParseResponse(t *testing.T) {
	p := &AnthropicProvider{}
	resp, err := p.ParseResponse([]byte(`{
		"content": [
			{"type": "text", "text": "UPDATE"},
			{"type": "tool_use", "id": "x"},
			{"type": "text", "text": "_SPEC"}
		],
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 100, "output_tokens": 20}
	}`), "claude-sonnet-4-20250514")
	require.NoError(t, err)

	assert.Equal(t, "UPDATE_SPEC", resp.Content, "text blocks concatenated")
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 120, resp.Usage.TotalTokens)
}
