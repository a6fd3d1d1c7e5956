// Package config provides layered configuration loading for specdrift.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/specdrift/model"
)

// Config is the complete tool configuration.
type Config struct {
	Spec    SpecConfig            `yaml:"spec"`
	API     APIConfig             `yaml:"api"`
	Model   *model.RegistryConfig `yaml:"model,omitempty"`
	Reason  ReasonConfig          `yaml:"reason"`
	NATS    NATSConfig            `yaml:"nats"`
	Metrics MetricsConfig         `yaml:"metrics"`
	Watch   WatchConfig           `yaml:"watch"`
}

// SpecConfig locates the contract documents under verification.
type SpecConfig struct {
	// Paths lists the contract document files. The first is the primary
	// document; the rest are available as cross-document ref targets.
	Paths []string `yaml:"paths"`
	// Targets filters which operations are checked, as "METHOD /path"
	// glob patterns (doublestar syntax). Empty checks everything.
	Targets []string `yaml:"targets,omitempty"`
}

// APIConfig describes the live API being probed.
type APIConfig struct {
	// BaseURL is the root of the API under verification.
	BaseURL string `yaml:"base_url"`
	// BearerTokenEnv names the environment variable holding the probe
	// bearer token. Empty disables auth.
	BearerTokenEnv string `yaml:"bearer_token_env,omitempty"`
	// Timeout bounds each probe request.
	Timeout Duration `yaml:"timeout"`
	// Concurrency is the number of checks probed in parallel.
	Concurrency int `yaml:"concurrency"`
}

// ReasonConfig tunes the reasoning collaborator and decision engine.
type ReasonConfig struct {
	// Capability selects the model chain used for classification.
	Capability string `yaml:"capability"`
	// AutoUpdateThreshold is the minimum confidence for an UPDATE_SPEC
	// decision to be applied automatically.
	AutoUpdateThreshold float64 `yaml:"auto_update_threshold"`
	// ApplyUpdates writes auto-approved updates back to the document.
	// When false, updated text is only carried in the report.
	ApplyUpdates bool `yaml:"apply_updates"`
}

// NATSConfig configures report and call-record publishing. An empty URL
// disables publishing entirely.
type NATSConfig struct {
	URL string `yaml:"url,omitempty"`
	// ReportSubject is where drift reports are published.
	ReportSubject string `yaml:"report_subject"`
	// RecordLLMCalls also publishes per-call LLM records.
	RecordLLMCalls bool `yaml:"record_llm_calls"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Listen is the address for the /metrics listener.
	Listen string `yaml:"listen"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	// Debounce coalesces bursts of file events into one re-check.
	Debounce Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with working defaults for everything
// that has one. Spec paths and the API base URL have no default and must
// come from a config file or flags.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout:     Duration(30 * time.Second),
			Concurrency: 4,
		},
		Reason: ReasonConfig{
			Capability:          "reconcile",
			AutoUpdateThreshold: 0.85,
		},
		NATS: NATSConfig{
			ReportSubject: "specdrift.reports",
		},
		Metrics: MetricsConfig{
			Listen: ":9464",
		},
		Watch: WatchConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
	}
}

// Validate checks the configuration for use by the pipeline.
func (c *Config) Validate() error {
	if len(c.Spec.Paths) == 0 {
		return fmt.Errorf("spec.paths is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Concurrency < 1 {
		return fmt.Errorf("api.concurrency must be at least 1")
	}
	if c.Reason.AutoUpdateThreshold < 0 || c.Reason.AutoUpdateThreshold > 1 {
		return fmt.Errorf("reason.auto_update_threshold must be between 0 and 1")
	}
	if c.NATS.RecordLLMCalls && c.NATS.URL == "" {
		return fmt.Errorf("nats.record_llm_calls requires nats.url")
	}
	return nil
}

// LoadFromFile reads one YAML layer over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &config, nil
}

// SaveToFile writes the configuration as YAML, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Merge overlays another config onto this one; non-zero values in other
// take precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Spec.Paths) > 0 {
		c.Spec.Paths = other.Spec.Paths
	}
	if len(other.Spec.Targets) > 0 {
		c.Spec.Targets = other.Spec.Targets
	}

	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.BearerTokenEnv != "" {
		c.API.BearerTokenEnv = other.API.BearerTokenEnv
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}
	if other.API.Concurrency != 0 {
		c.API.Concurrency = other.API.Concurrency
	}

	if other.Model != nil {
		if c.Model == nil {
			c.Model = other.Model
		} else {
			mergeRegistry(c.Model, other.Model)
		}
	}

	if other.Reason.Capability != "" {
		c.Reason.Capability = other.Reason.Capability
	}
	if other.Reason.AutoUpdateThreshold != 0 {
		c.Reason.AutoUpdateThreshold = other.Reason.AutoUpdateThreshold
	}
	if other.Reason.ApplyUpdates {
		c.Reason.ApplyUpdates = true
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.ReportSubject != "" {
		c.NATS.ReportSubject = other.NATS.ReportSubject
	}
	if other.NATS.RecordLLMCalls {
		c.NATS.RecordLLMCalls = true
	}

	if other.Metrics.Enabled {
		c.Metrics.Enabled = true
	}
	if other.Metrics.Listen != "" {
		c.Metrics.Listen = other.Metrics.Listen
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

func mergeRegistry(dst, src *model.RegistryConfig) {
	if dst.Capabilities == nil {
		dst.Capabilities = make(map[string]*model.CapabilityConfig)
	}
	for k, v := range src.Capabilities {
		dst.Capabilities[k] = v
	}
	if dst.Endpoints == nil {
		dst.Endpoints = make(map[string]*model.EndpointConfig)
	}
	for k, v := range src.Endpoints {
		dst.Endpoints[k] = v
	}
	if src.Default != "" {
		dst.Default = src.Default
	}
}
