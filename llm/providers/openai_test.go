package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specdrift/llm"
)

func TestOpenAIBuildURL(t *testing.T) {
	p := &OpenAIProvider{}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BuildURL(""))
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", p.BuildURL("https://openrouter.ai/api/v1"))
	assert.Equal(t, "https://x.test/chat/completions", p.BuildURL("https://x.test/chat/completions"),
		"already-complete URL untouched")
}

func TestOpenAIBuildRequestBody(t *testing.T) {
	p := &OpenAIProvider{}
	temp := 0.0
	body, err := p.BuildRequestBody("gpt-4o", []llm.Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: "u"},
	}, &temp, 800)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	assert.Equal(t, "gpt-4o", req["model"])
	assert.Equal(t, float64(0), req["temperature"], "explicit zero is sent")
	assert.Equal(t, float64(800), req["max_tokens"])
	assert.Len(t, req["messages"], 2, "system message stays inline")
}

func TestOpenAIParseResponse(t *testing.T) {
	p := &OpenAIProvider{}

	resp, err := p.ParseResponse([]byte(`{
		"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
	}`), "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model, "falls back to requested model when response omits it")
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	_, err = p.ParseResponse([]byte(`{"choices": []}`), "gpt-4o")
	assert.ErrorContains(t, err, "no choices")
}
