package reason

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/specdrift/diff"
	"github.com/c360studio/specdrift/llm"
	"github.com/c360studio/specdrift/model"
)

// CompletionClient is the slice of the LLM client the reconciler needs.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Reconciler asks the model to classify one drifted check and validates
// the answer before anyone acts on it.
type Reconciler struct {
	client     CompletionClient
	capability string
	logger     *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithCapability overrides the model capability used for classification.
func WithCapability(capability string) ReconcilerOption {
	return func(r *Reconciler) { r.capability = capability }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler creates a Reconciler over a completion client.
func NewReconciler(client CompletionClient, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		client:     client,
		capability: model.CapabilityReconcile.String(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile classifies a non-empty anomaly summary for one endpoint.
// A transport failure is returned as an error; a response that violates
// the collaborator contract becomes a NEEDS_REVIEW decision instead, so
// one bad model answer degrades a single check rather than failing it.
func (r *Reconciler) Reconcile(ctx context.Context, endpoint string, fragment []byte, summary diff.Summary, sample any) (*Decision, error) {
	if summary.Empty() {
		return nil, fmt.Errorf("refusing to reconcile an empty summary")
	}

	temperature := 0.0
	resp, err := r.client.Complete(ctx, llm.Request{
		Capability: r.capability,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(endpoint, fragment, summary, sample)},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling %s: %w", endpoint, err)
	}

	decision := r.parse(resp.Content)
	r.logger.Info("drift classified",
		"endpoint", endpoint,
		"classification", decision.Classification,
		"confidence", decision.Confidence,
		"changes", len(decision.Changes),
		"model", resp.Model,
		"request_id", resp.RequestID)
	return decision, nil
}

// parse extracts and validates the decision from raw model output,
// falling back to NEEDS_REVIEW on any contract violation.
func (r *Reconciler) parse(content string) *Decision {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		r.logger.Warn("model response contained no JSON object")
		return NeedsReview("model response contained no JSON object")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		r.logger.Warn("model response failed to decode", "error", err)
		return NeedsReview(fmt.Sprintf("model response failed to decode: %v", err))
	}
	if err := decision.Validate(); err != nil {
		r.logger.Warn("model response failed validation", "error", err)
		return NeedsReview(fmt.Sprintf("model response failed validation: %v", err))
	}
	return &decision
}
