package model

import "sync"

// Registry maps capabilities to preferred models with fallback chains
// and tracks per-endpoint health.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaultModel string
	health       *healthState
}

// CapabilityConfig defines model preferences for one capability.
type CapabilityConfig struct {
	// Preferred lists endpoint names in order of preference.
	Preferred []string `json:"preferred" yaml:"preferred"`
	// Fallback lists backup endpoints tried after all preferred fail.
	Fallback []string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// EndpointConfig describes one reachable model endpoint.
type EndpointConfig struct {
	// Provider selects the wire adapter (anthropic, openai, ollama).
	Provider string `json:"provider" yaml:"provider"`
	// URL is the API base URL; empty uses the provider default.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Model is the identifier sent to the provider.
	Model string `json:"model" yaml:"model"`
	// MaxTokens is the endpoint's context window size.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// NewRegistry creates a registry from explicit capability and endpoint
// maps.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		health:       newHealthState(DefaultHealthConfig()),
	}
}

// NewDefaultRegistry creates a registry with sensible defaults for when
// no configuration is provided: a hosted model for reconciliation with a
// local fallback, and a local model for fast tasks.
func NewDefaultRegistry() *Registry {
	return &Registry{
		capabilities: map[Capability]*CapabilityConfig{
			CapabilityReconcile: {
				Preferred: []string{"claude-sonnet"},
				Fallback:  []string{"gpt-4o", "qwen"},
			},
			CapabilityFast: {
				Preferred: []string{"claude-haiku"},
				Fallback:  []string{"qwen"},
			},
		},
		endpoints: map[string]*EndpointConfig{
			"claude-sonnet": {
				Provider:  "anthropic",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 200000,
			},
			"claude-haiku": {
				Provider:  "anthropic",
				Model:     "claude-haiku-3-5-20241022",
				MaxTokens: 200000,
			},
			"gpt-4o": {
				Provider:  "openai",
				Model:     "gpt-4o",
				MaxTokens: 128000,
			},
			"qwen": {
				Provider:  "ollama",
				URL:       "http://localhost:11434/v1",
				Model:     "qwen2.5-coder:14b",
				MaxTokens: 128000,
			},
		},
		defaultModel: "qwen",
		health:       newHealthState(DefaultHealthConfig()),
	}
}

// Resolve returns the first preferred endpoint name for a capability, or
// the default model when the capability is unconfigured.
func (r *Registry) Resolve(c Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[c]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaultModel
}

// FallbackChain returns every endpoint for a capability in preference
// order, preferred before fallback.
func (r *Registry) FallbackChain(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[c]; ok {
		chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
		chain = append(chain, cfg.Preferred...)
		chain = append(chain, cfg.Fallback...)
		return chain
	}
	if r.defaultModel == "" {
		return nil
	}
	return []string{r.defaultModel}
}

// HasCapability reports whether a capability is explicitly configured.
// Built-in capabilities may still resolve through the default model
// when unconfigured; site-specific ones must be registered.
func (r *Registry) HasCapability(c Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.capabilities[c]
	return ok
}

// Endpoint returns the configuration for an endpoint name, or nil when
// unknown.
func (r *Registry) Endpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[name]
}

// SetCapability adds or replaces a capability configuration.
func (r *Registry) SetCapability(c Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capabilities == nil {
		r.capabilities = make(map[Capability]*CapabilityConfig)
	}
	r.capabilities[c] = cfg
}

// SetEndpoint adds or replaces an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoints == nil {
		r.endpoints = make(map[string]*EndpointConfig)
	}
	r.endpoints[name] = cfg
}

// SetDefault sets the endpoint used for unconfigured capabilities.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = name
}

// ListEndpoints returns all configured endpoint names.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	return names
}
