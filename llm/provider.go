package llm

import (
	"net/http"
	"sync"
)

// Provider adapts the generic completion request to one vendor's wire
// format.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic").
	Name() string

	// BuildURL constructs the full API endpoint URL from a base URL;
	// an empty base selects the provider default.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific auth and version headers.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body. A nil temperature
	// uses the provider default; maxTokens 0 uses the endpoint default.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse extracts the completion from provider JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerMu       sync.RWMutex
	providerRegistry = make(map[string]Provider)
)

// RegisterProvider adds a provider. Called from provider init functions.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, nil when unregistered.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
