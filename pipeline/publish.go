package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// DefaultReportSubject is the NATS subject drift reports publish to.
const DefaultReportSubject = "specdrift.reports"

// Publisher emits finished reports onto NATS so downstream consumers
// (dashboards, review queues) can react to drift as it is found.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithSubject overrides the report subject.
func WithSubject(subject string) PublisherOption {
	return func(p *Publisher) { p.subject = subject }
}

// WithPublisherLogger sets the logger.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// NewPublisher creates a Publisher over an established NATS connection.
func NewPublisher(nc *nats.Conn, opts ...PublisherOption) (*Publisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	p := &Publisher{
		nc:      nc,
		subject: DefaultReportSubject,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish sends one report as JSON.
func (p *Publisher) Publish(report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", report.ID, err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing report %s: %w", report.ID, err)
	}
	p.logger.Debug("report published",
		"subject", p.subject,
		"report_id", report.ID,
		"endpoint", report.Endpoint,
		"outcome", report.Outcome)
	return nil
}
