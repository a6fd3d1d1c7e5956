package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/specdrift/contract"
	"github.com/c360studio/specdrift/diff"
	"github.com/c360studio/specdrift/metrics"
	"github.com/c360studio/specdrift/probe"
	"github.com/c360studio/specdrift/reason"
	"github.com/c360studio/specdrift/update"
)

// Target is one endpoint to check. Path may be a template containing
// {name} placeholders bound by PathParams.
type Target struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      url.Values
	Headers    http.Header
}

// Session verifies one loaded contract document against a live API.
// The document is frozen after load, so checks share it freely.
type Session struct {
	doc        *contract.Document
	exec       *probe.Executor
	reconciler *reason.Reconciler

	metrics   *metrics.Metrics
	publisher *Publisher
	logger    *slog.Logger

	threshold    float64
	applyUpdates bool
	specPath     string
	concurrency  int

	// writeMu serializes document rewrites when ApplyUpdates is on;
	// currentText is the last-written document text so later batches
	// build on earlier edits rather than the load-time snapshot.
	writeMu     sync.Mutex
	currentText []byte
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithPublisher attaches a report publisher. Publish failures are
// logged, never fatal to a check.
func WithPublisher(p *Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithAutoUpdateThreshold overrides the auto-update confidence floor.
func WithAutoUpdateThreshold(threshold float64) SessionOption {
	return func(s *Session) { s.threshold = threshold }
}

// WithApplyUpdates enables rewriting the document at path when a
// decision qualifies for auto-update.
func WithApplyUpdates(path string) SessionOption {
	return func(s *Session) {
		s.applyUpdates = true
		s.specPath = path
	}
}

// WithConcurrency bounds the Run worker pool.
func WithConcurrency(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSession creates a verification session. A nil reconciler is
// allowed; drifted checks then route straight to review.
func NewSession(doc *contract.Document, exec *probe.Executor, reconciler *reason.Reconciler, opts ...SessionOption) *Session {
	s := &Session{
		doc:         doc,
		exec:        exec,
		reconciler:  reconciler,
		logger:      slog.Default(),
		threshold:   DefaultAutoUpdateThreshold,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Targets enumerates the document's parameter-free entries as check
// targets, filtered by doublestar patterns against "METHOD /path".
// A "!" prefix excludes; no include patterns means include everything.
func (s *Session) Targets(patterns []string) ([]Target, error) {
	var targets []Target
	for _, entry := range s.doc.Entries() {
		parameterized := false
		for _, seg := range entry.Template.Segments {
			if seg.IsParam() {
				parameterized = true
				break
			}
		}
		if parameterized {
			continue
		}
		key := entry.Method + " " + entry.Template.Raw
		ok, err := selected(key, patterns)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		targets = append(targets, Target{Method: entry.Method, Path: entry.Template.Raw})
	}
	return targets, nil
}

func selected(key string, patterns []string) (bool, error) {
	hasInclude := false
	included := false
	for _, p := range patterns {
		pattern, negated := strings.CutPrefix(p, "!")
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			return false, fmt.Errorf("target pattern %q: %w", p, err)
		}
		if negated {
			if ok {
				return false, nil
			}
			continue
		}
		hasInclude = true
		if ok {
			included = true
		}
	}
	return !hasInclude || included, nil
}

// Run checks every target over a bounded worker pool and returns the
// reports in target order.
func (s *Session) Run(ctx context.Context, targets []Target) []*Report {
	reports := make([]*Report, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			reports[i] = s.Check(ctx, target)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// Check runs the full verification of one target. Failures scoped to
// the target come back as an error-outcome report, never as a panic or
// a run-wide abort.
func (s *Session) Check(ctx context.Context, target Target) *Report {
	start := time.Now()
	report := &Report{
		ID:        uuid.New().String(),
		Endpoint:  strings.ToUpper(target.Method) + " " + target.Path,
		SpecPath:  s.doc.Name,
		CheckedAt: start,
	}

	resp, err := s.exec.Do(ctx, probe.Request{
		Method:     target.Method,
		Path:       target.Path,
		PathParams: target.PathParams,
		Query:      target.Query,
		Headers:    target.Headers,
	})
	if err != nil {
		return s.fail(report, start, err)
	}
	s.metrics.ObserveProbe(resp.Duration)
	report.Status = resp.Status

	concretePath, err := probe.ExpandPath(target.Path, target.PathParams)
	if err != nil {
		return s.fail(report, start, err)
	}

	entry, schema, err := s.doc.Match(target.Method, concretePath, resp.Status)
	var anomalies []diff.Anomaly
	var statusErr *contract.StatusNotDocumentedError
	switch {
	case errors.As(err, &statusErr):
		anomalies = append(anomalies, diff.StatusAnomaly(resp.Status, statusErr.Documented))
	case err != nil:
		return s.fail(report, start, err)
	default:
		body, err := resp.Body()
		if err != nil {
			return s.fail(report, start, err)
		}
		if schema != nil {
			anomalies = diff.Compare(schema, body)
		}
	}

	summary := diff.Summarize(anomalies)
	report.Summary = &summary
	s.metrics.ObserveAnomalies(summary)
	if summary.Empty() {
		report.Outcome = OutcomeNoDrift
		return s.finish(report, start)
	}

	decision, err := s.reconcile(ctx, report, entry, summary, resp)
	if err != nil {
		return s.fail(report, start, err)
	}
	report.Decision = decision
	report.Outcome = outcomeFor(decision)

	if AutoUpdate(decision, s.threshold) {
		report.AutoUpdate = true
		if err := s.applyDecision(report, decision); err != nil {
			return s.fail(report, start, err)
		}
	}
	return s.finish(report, start)
}

// reconcile asks the reasoning collaborator to classify the drift. With
// no reconciler configured every drift routes to review.
func (s *Session) reconcile(ctx context.Context, report *Report, entry *contract.Entry, summary diff.Summary, resp *probe.Response) (*reason.Decision, error) {
	if s.reconciler == nil {
		return &reason.Decision{
			Classification: reason.ClassNeedsReview,
			Notes:          "no reasoning collaborator configured",
		}, nil
	}

	fragment, err := s.doc.FragmentYAML(entry)
	if err != nil {
		return nil, err
	}
	var sample any
	if body, err := resp.Body(); err == nil {
		sample = body
	} else {
		sample = string(resp.Raw)
	}

	decision, err := s.reconciler.Reconcile(ctx, report.Endpoint, []byte(fragment), summary, sample)
	if err != nil {
		s.metrics.ObserveLLMCall("error")
		return nil, err
	}
	s.metrics.ObserveLLMCall("ok")
	return decision, nil
}

// applyDecision runs the fragment updater and, when enabled, rewrites
// the document on disk. Persisted batches chain: each one applies to
// the text the previous write produced, so concurrent checks in one
// run accumulate instead of clobbering each other's edits.
func (s *Session) applyDecision(report *Report, decision *reason.Decision) error {
	if !s.applyUpdates || s.specPath == "" {
		updated, err := update.Apply(s.doc, decision.Changes)
		if err != nil {
			return err
		}
		report.UpdatedText = string(updated.Text)
		report.Audit = updated.Audit
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	text := s.currentText
	if text == nil {
		text = s.doc.Text()
	}
	updated, err := update.ApplyText(s.doc.Name, text, decision.Changes)
	if err != nil {
		return err
	}
	report.UpdatedText = string(updated.Text)
	report.Audit = updated.Audit

	if err := os.WriteFile(s.specPath, updated.Text, 0o644); err != nil {
		return fmt.Errorf("writing updated document %s: %w", s.specPath, err)
	}
	s.currentText = updated.Text
	report.Updated = true
	s.metrics.ObserveUpdateApplied()
	s.logger.Info("document updated",
		"path", s.specPath,
		"endpoint", report.Endpoint,
		"applied", updated.Applied())
	return nil
}

func (s *Session) finish(report *Report, start time.Time) *Report {
	report.DurationMS = time.Since(start).Milliseconds()
	s.metrics.ObserveCheck(report.Outcome)
	s.publish(report)
	s.logger.Info("check complete",
		"endpoint", report.Endpoint,
		"status", report.Status,
		"outcome", report.Outcome,
		"anomalies", anomalyCount(report),
		"duration_ms", report.DurationMS)
	return report
}

func (s *Session) fail(report *Report, start time.Time, err error) *Report {
	report.Outcome = OutcomeError
	report.Error = err.Error()
	report.DurationMS = time.Since(start).Milliseconds()
	s.metrics.ObserveCheck(OutcomeError)
	s.publish(report)
	s.logger.Warn("check failed",
		"endpoint", report.Endpoint,
		"error", err)
	return report
}

func (s *Session) publish(report *Report) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(report); err != nil {
		s.logger.Warn("failed to publish report",
			"report_id", report.ID,
			"error", err)
	}
}

func anomalyCount(report *Report) int {
	if report.Summary == nil {
		return 0
	}
	return report.Summary.Total
}
