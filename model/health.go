package model

import (
	"sync"
	"time"
)

// EndpointHealth is a point-in-time snapshot of one endpoint's health.
type EndpointHealth struct {
	Available       bool      `json:"available"`
	LastSuccess     time.Time `json:"last_success,omitempty"`
	LastFailure     time.Time `json:"last_failure,omitempty"`
	FailureCount    int       `json:"failure_count"`
	CircuitOpen     bool      `json:"circuit_open"`
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig tunes the circuit breaker.
type HealthConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit.
	FailureThreshold int
	// RecoveryTimeout is how long an open circuit blocks the endpoint
	// before a probe request is allowed through.
	RecoveryTimeout time.Duration
}

// DefaultHealthConfig returns the default circuit-breaker tuning.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

type healthState struct {
	mu       sync.Mutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
}

func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
	}
}

// ensureHealth lazily creates the health tracker so a zero-value or
// config-built registry still tracks health.
func (r *Registry) ensureHealth() *healthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.health == nil {
		r.health = newHealthState(DefaultHealthConfig())
	}
	return r.health
}

// MarkEndpointSuccess records a successful request, closing the circuit.
func (r *Registry) MarkEndpointSuccess(name string) {
	h := r.ensureHealth()
	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.statuses[name]
	if !ok {
		status = &EndpointHealth{}
		h.statuses[name] = status
	}
	status.LastSuccess = time.Now()
	status.FailureCount = 0
	status.Available = true
	status.CircuitOpen = false
}

// MarkEndpointFailure records a failed request, opening the circuit once
// the failure threshold is reached.
func (r *Registry) MarkEndpointFailure(name string) {
	h := r.ensureHealth()
	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.statuses[name]
	if !ok {
		status = &EndpointHealth{Available: true}
		h.statuses[name] = status
	}
	status.LastFailure = time.Now()
	status.FailureCount++
	if status.FailureCount >= h.config.FailureThreshold {
		status.CircuitOpen = true
		status.CircuitOpenedAt = time.Now()
		status.Available = false
	}
}

// IsEndpointAvailable reports whether an endpoint should receive
// requests. An open circuit whose recovery timeout has elapsed admits a
// single probe request (half-open).
func (r *Registry) IsEndpointAvailable(name string) bool {
	h := r.ensureHealth()
	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.statuses[name]
	if !ok || !status.CircuitOpen {
		return true
	}
	return time.Since(status.CircuitOpenedAt) > h.config.RecoveryTimeout
}

// Health returns a copy of an endpoint's health snapshot, or nil when
// nothing has been recorded for it.
func (r *Registry) Health(name string) *EndpointHealth {
	h := r.ensureHealth()
	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.statuses[name]
	if !ok {
		return nil
	}
	snapshot := *status
	return &snapshot
}

// AvailableFallbackChain filters a capability's fallback chain to
// endpoints the circuit breaker admits. When everything is blocked the
// full chain is returned, since trying something beats trying nothing.
func (r *Registry) AvailableFallbackChain(c Capability) []string {
	chain := r.FallbackChain(c)
	available := make([]string, 0, len(chain))
	for _, name := range chain {
		if r.IsEndpointAvailable(name) {
			available = append(available, name)
		}
	}
	if len(available) == 0 {
		return chain
	}
	return available
}

// SetHealthConfig replaces the circuit-breaker tuning.
func (r *Registry) SetHealthConfig(cfg HealthConfig) {
	h := r.ensureHealth()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.config = cfg
}
