package model

// RegistryConfig is the serializable shape of a registry, as it appears
// under the "model" key of the tool configuration.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `json:"capabilities" yaml:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `json:"endpoints" yaml:"endpoints"`
	Default      string                       `json:"default,omitempty" yaml:"default,omitempty"`
}

// NewFromConfig builds a registry from configuration. Unknown capability
// names are kept as-is so site-specific capabilities keep working.
func NewFromConfig(cfg *RegistryConfig) *Registry {
	r := NewDefaultRegistry()
	if cfg != nil {
		r.Merge(cfg)
	}
	return r
}

// Merge overlays configuration onto the registry. Configured entries
// replace existing ones; everything else is kept.
func (r *Registry) Merge(cfg *RegistryConfig) {
	for name, c := range cfg.Capabilities {
		r.SetCapability(Capability(name), c)
	}
	for name, e := range cfg.Endpoints {
		r.SetEndpoint(name, e)
	}
	if cfg.Default != "" {
		r.SetDefault(cfg.Default)
	}
}
