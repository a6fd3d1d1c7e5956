// Package llm provides a provider-agnostic chat completion client with
// retry, fallback, and call recording. Model selection goes through the
// model.Registry so callers name capabilities, not vendors.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/specdrift/model"
)

// maxResponseSize caps the response body read to prevent memory
// exhaustion from a misbehaving endpoint.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Message is one chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Request is a completion request against a capability.
type Request struct {
	// Capability selects the model chain ("reconcile", "fast").
	Capability string

	// Messages is the chat history to send.
	Messages []Message

	// Temperature controls randomness. nil uses the endpoint default,
	// 0 is deterministic.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int
}

// TokenUsage reports token consumption for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion result.
type Response struct {
	// RequestID correlates this call with its recorded CallRecord.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the model that actually served the request.
	Model string

	// Usage holds token consumption when the provider reports it.
	Usage TokenUsage

	// FinishReason says why generation stopped.
	FinishReason string
}

// Client resolves capabilities through the registry and walks the
// fallback chain with per-endpoint retries.
type Client struct {
	registry *model.Registry
	http     *http.Client
	retry    RetryConfig
	logger   *slog.Logger

	// recorder optionally publishes call records; nil disables recording.
	recorder *Recorder
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithRetryConfig sets the retry tuning.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(cl *Client) { cl.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = logger }
}

// WithRecorder enables call recording.
func WithRecorder(r *Recorder) ClientOption {
	return func(cl *Client) { cl.recorder = r }
}

// NewClient creates a client over the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry: registry,
		retry:    DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 180 * time.Second, // LLM responses are slow
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a completion request, walking the capability's fallback
// chain until an endpoint succeeds. Fatal errors stop the walk.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Capability == "" {
		return nil, fmt.Errorf("capability is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	requestID := uuid.New().String()
	startedAt := time.Now()

	capability := model.Capability(req.Capability)
	if !capability.IsValid() && !c.registry.HasCapability(capability) {
		return nil, fmt.Errorf("unknown capability %q", req.Capability)
	}
	chain := c.registry.AvailableFallbackChain(capability)
	if len(chain) == 0 {
		return nil, fmt.Errorf("no models configured for capability %s", req.Capability)
	}

	var lastErr error
	var fallbacks []string
	retries := 0

	for _, name := range chain {
		endpoint := c.registry.Endpoint(name)
		if endpoint == nil {
			c.logger.Debug("no endpoint for model, skipping", "model", name)
			continue
		}

		resp, attempts, err := c.attemptEndpoint(ctx, endpoint, name, req)
		retries += attempts - 1
		if err == nil {
			resp.RequestID = requestID
			c.record(ctx, &CallRecord{
				RequestID:   requestID,
				Capability:  req.Capability,
				Model:       resp.Model,
				Provider:    endpoint.Provider,
				Messages:    req.Messages,
				Response:    resp.Content,
				Usage:       resp.Usage,
				StartedAt:   startedAt,
				CompletedAt: time.Now(),
				Retries:     retries,
				Fallbacks:   fallbacks,
			})
			return resp, nil
		}

		fallbacks = append(fallbacks, name)
		lastErr = err
		c.logger.Warn("endpoint failed",
			"model", name,
			"provider", endpoint.Provider,
			"error", err)

		if IsFatal(err) {
			c.record(ctx, &CallRecord{
				RequestID:   requestID,
				Capability:  req.Capability,
				Model:       name,
				Provider:    endpoint.Provider,
				Messages:    req.Messages,
				Error:       err.Error(),
				StartedAt:   startedAt,
				CompletedAt: time.Now(),
				Retries:     retries,
				Fallbacks:   fallbacks,
			})
			return nil, err
		}
	}

	c.record(ctx, &CallRecord{
		RequestID:   requestID,
		Capability:  req.Capability,
		Messages:    req.Messages,
		Error:       fmt.Sprintf("all endpoints failed: %v", lastErr),
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Retries:     retries,
		Fallbacks:   fallbacks,
	})
	return nil, fmt.Errorf("all endpoints failed for capability %s: %w", req.Capability, lastErr)
}

// attemptEndpoint runs one endpoint with retries and reports the attempt
// count, feeding the circuit breaker on the way out.
func (c *Client) attemptEndpoint(ctx context.Context, ep *model.EndpointConfig, name string, req Request) (*Response, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, ep, req)
		if err == nil {
			c.registry.MarkEndpointSuccess(name)
			return resp, attempt, nil
		}
		lastErr = err

		// Fatal errors usually mean config, not endpoint health.
		if IsFatal(err) {
			return nil, attempt, err
		}
		if attempt < c.retry.MaxAttempts {
			backoff := c.backoff(attempt)
			c.logger.Debug("request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.retry.MaxAttempts,
				"backoff", backoff,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	c.registry.MarkEndpointFailure(name)
	return nil, c.retry.MaxAttempts, lastErr
}

// backoff computes the exponential delay with +/-25% jitter to avoid
// synchronized retries.
func (c *Client) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retry.BackoffMultiplier
	}
	d := time.Duration(float64(c.retry.BackoffBase) * multiplier)
	if d > c.retry.MaxBackoff {
		d = c.retry.MaxBackoff
	}
	jitter := float64(d) * 0.25 * (rand.Float64()*2 - 1)
	return d + time.Duration(jitter)
}

// doRequest executes a single HTTP request against one endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	url := provider.BuildURL(ep.URL)
	body, err := provider.BuildRequestBody(ep.Model, req.Messages, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("sending completion request",
		"provider", ep.Provider,
		"model", ep.Model,
		"url", url,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}
	return provider.ParseResponse(respBody, ep.Model)
}

// classifyHTTPError sorts an HTTP failure into transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	detail := string(body)
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	err := fmt.Errorf("LLM API error (status %d): %s", statusCode, detail)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden,
		statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
