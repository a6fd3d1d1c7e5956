package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultCallSubject is the NATS subject call records are published to.
const DefaultCallSubject = "specdrift.llm.calls"

// CallRecord captures one completion call for offline analysis: what was
// asked, what came back, and what it cost.
type CallRecord struct {
	RequestID   string     `json:"request_id"`
	Capability  string     `json:"capability"`
	Model       string     `json:"model,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Messages    []Message  `json:"messages"`
	Response    string     `json:"response,omitempty"`
	Usage       TokenUsage `json:"usage"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Retries     int        `json:"retries"`
	Fallbacks   []string   `json:"fallbacks,omitempty"`
}

// Recorder publishes call records to NATS. A nil Recorder is valid and
// records nothing.
type Recorder struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSubject overrides the publish subject.
func WithSubject(subject string) RecorderOption {
	return func(r *Recorder) { r.subject = subject }
}

// WithRecorderLogger sets the logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// NewRecorder creates a recorder over an established NATS connection.
func NewRecorder(nc *nats.Conn, opts ...RecorderOption) (*Recorder, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	r := &Recorder{
		nc:      nc,
		subject: DefaultCallSubject,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Store publishes one record. Publish failures are returned so the
// caller can log them; recording never blocks a completion.
func (r *Recorder) Store(_ context.Context, record *CallRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding call record: %w", err)
	}
	if err := r.nc.Publish(r.subject, data); err != nil {
		return fmt.Errorf("publishing call record: %w", err)
	}
	return nil
}

// record stores a call if a recorder is configured. Failures are logged
// and swallowed; recording must never affect the call itself.
func (c *Client) record(ctx context.Context, rec *CallRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Store(ctx, rec); err != nil {
		c.logger.Warn("failed to record LLM call",
			"request_id", rec.RequestID,
			"capability", rec.Capability,
			"error", err)
	}
}
