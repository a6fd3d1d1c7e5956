package providers

import (
	"net/http"
	"os"
	"strings"

	"github.com/c360studio/specdrift/llm"
)

// OllamaProvider speaks the OpenAI-compatible API served by Ollama,
// vLLM, and similar local runtimes. Separate from OpenAIProvider so it
// can default to a local URL and skip hosted auth.
type OllamaProvider struct{}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}

func (o *OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer auth only when a key is configured; local
// runtimes usually need none.
func (o *OllamaProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return buildOpenAIBody(model, messages, temperature, maxTokens)
}

func (o *OllamaProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return parseOpenAIResponse(body, model)
}
