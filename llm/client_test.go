package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specdrift/llm"
	_ "github.com/c360studio/specdrift/llm/providers" // register providers
	"github.com/c360studio/specdrift/model"
)

// openAICompletion writes an OpenAI-format success response.
func openAICompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	})
}

// registryFor wires one or more test servers as ollama endpoints behind
// the reconcile capability, in the given order.
func registryFor(urls ...string) *model.Registry {
	caps := map[model.Capability]*model.CapabilityConfig{
		model.CapabilityReconcile: {},
	}
	endpoints := make(map[string]*model.EndpointConfig, len(urls))
	for i, u := range urls {
		name := string(rune('a' + i))
		caps[model.CapabilityReconcile].Preferred = append(caps[model.CapabilityReconcile].Preferred, name)
		endpoints[name] = &model.EndpointConfig{Provider: "ollama", URL: u, Model: "test-model"}
	}
	return model.NewRegistry(caps, endpoints)
}

func fastRetries() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       2,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		openAICompletion(w, "drift assessment")
	}))
	defer server.Close()

	client := llm.NewClient(registryFor(server.URL))
	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "reconcile",
		Messages:   []llm.Message{{Role: "user", Content: "classify"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "drift assessment", resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
}

func TestCompleteRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		openAICompletion(w, "second try")
	}))
	defer server.Close()

	client := llm.NewClient(registryFor(server.URL), llm.WithRetryConfig(fastRetries()))
	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "reconcile",
		Messages:   []llm.Message{{Role: "user", Content: "classify"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "second try", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteFatalStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := llm.NewClient(registryFor(server.URL), llm.WithRetryConfig(fastRetries()))
	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "reconcile",
		Messages:   []llm.Message{{Role: "user", Content: "classify"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), calls.Load(), "no retry on auth failure")
}

func TestCompleteFallsBackToNextEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		openAICompletion(w, "fallback answer")
	}))
	defer working.Close()

	client := llm.NewClient(registryFor(broken.URL, working.URL), llm.WithRetryConfig(fastRetries()))
	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "reconcile",
		Messages:   []llm.Message{{Role: "user", Content: "classify"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", resp.Content)
}

func TestCompleteValidation(t *testing.T) {
	client := llm.NewClient(model.NewRegistry(nil, nil))

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "x"}},
	})
	assert.ErrorContains(t, err, "capability")

	_, err = client.Complete(context.Background(), llm.Request{Capability: "reconcile"})
	assert.ErrorContains(t, err, "message")

	_, err = client.Complete(context.Background(), llm.Request{
		Capability: "reconcile",
		Messages:   []llm.Message{{Role: "user", Content: "x"}},
	})
	assert.ErrorContains(t, err, "no models configured")

	_, err = client.Complete(context.Background(), llm.Request{
		Capability: "reconcille",
		Messages:   []llm.Message{{Role: "user", Content: "x"}},
	})
	assert.ErrorContains(t, err, `unknown capability "reconcille"`)
}

func TestCompleteSiteSpecificCapability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openAICompletion(w, `{"ok":true}`)
	}))
	defer srv.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			"triage": {Preferred: []string{"local"}},
		},
		map[string]*model.EndpointConfig{
			"local": {Provider: "ollama", URL: srv.URL, Model: "stub"},
		})
	client := llm.NewClient(registry, llm.WithRetryConfig(fastRetries()))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "triage",
		Messages:   []llm.Message{{Role: "user", Content: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
}

func TestErrorClassification(t *testing.T) {
	transient := llm.NewTransientError(assert.AnError)
	fatal := llm.NewFatalError(assert.AnError)

	assert.True(t, llm.IsTransient(transient))
	assert.False(t, llm.IsFatal(transient))
	assert.True(t, llm.IsFatal(fatal))
	assert.False(t, llm.IsTransient(fatal))
	assert.False(t, llm.IsFatal(assert.AnError), "unclassified errors are not fatal")
}
