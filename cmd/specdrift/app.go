package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/specdrift/config"
	"github.com/c360studio/specdrift/contract"
	"github.com/c360studio/specdrift/llm"
	"github.com/c360studio/specdrift/metrics"
	"github.com/c360studio/specdrift/model"
	"github.com/c360studio/specdrift/pipeline"
	"github.com/c360studio/specdrift/probe"
	"github.com/c360studio/specdrift/reason"
)

// app holds the wired collaborators for one invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	nc            *nats.Conn
	metrics       *metrics.Metrics
	metricsServer *http.Server
	publisher     *pipeline.Publisher
	reconciler    *reason.Reconciler
	exec          *probe.Executor
}

// loadConfig layers defaults, discovered config files, and an explicit
// --config path. Flag overrides are applied by the caller before
// Validate.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath == "" {
		return config.NewLoader(logger).Load()
	}
	cfg := config.DefaultConfig()
	layer, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(layer)
	return cfg, nil
}

// newApp wires the collaborators from validated configuration. NATS and
// metrics are optional; everything else is always built.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(appName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS %s: %w", cfg.NATS.URL, err)
		}
		a.nc = nc

		publisher, err := pipeline.NewPublisher(nc,
			pipeline.WithSubject(cfg.NATS.ReportSubject),
			pipeline.WithPublisherLogger(logger))
		if err != nil {
			a.close()
			return nil, err
		}
		a.publisher = publisher
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		a.metricsServer = a.metrics.Server(cfg.Metrics.Listen)
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		logger.Info("metrics listening", "addr", cfg.Metrics.Listen)
	}

	clientOpts := []llm.ClientOption{llm.WithLogger(logger)}
	if a.nc != nil && cfg.NATS.RecordLLMCalls {
		recorder, err := llm.NewRecorder(a.nc, llm.WithRecorderLogger(logger))
		if err != nil {
			a.close()
			return nil, err
		}
		clientOpts = append(clientOpts, llm.WithRecorder(recorder))
	}
	client := llm.NewClient(model.NewFromConfig(cfg.Model), clientOpts...)
	a.reconciler = reason.NewReconciler(client,
		reason.WithCapability(cfg.Reason.Capability),
		reason.WithLogger(logger))

	probeOpts := []probe.Option{
		probe.WithLogger(logger),
		probe.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Std()}),
	}
	if cfg.API.BearerTokenEnv != "" {
		if token := os.Getenv(cfg.API.BearerTokenEnv); token != "" {
			probeOpts = append(probeOpts, probe.WithBearerToken(token))
		} else {
			logger.Warn("bearer token env var is empty", "var", cfg.API.BearerTokenEnv)
		}
	}
	a.exec = probe.NewExecutor(cfg.API.BaseURL, probeOpts...)

	return a, nil
}

// loadDocuments loads every configured contract document into one set
// so cross-document references resolve, and returns the primary.
func (a *app) loadDocuments() (*contract.Document, error) {
	set := contract.NewSet()
	var primary string
	for i, path := range a.cfg.Spec.Paths {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading document %s: %w", path, err)
		}
		name := filepath.Base(path)
		if err := set.Add(name, text); err != nil {
			return nil, err
		}
		if i == 0 {
			primary = name
		}
	}
	if err := set.Build(); err != nil {
		return nil, err
	}
	doc, _ := set.Document(primary)
	return doc, nil
}

// session builds a verification session over the primary document.
func (a *app) session(doc *contract.Document, applyUpdates bool) *pipeline.Session {
	opts := []pipeline.SessionOption{
		pipeline.WithSessionLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithConcurrency(a.cfg.API.Concurrency),
		pipeline.WithAutoUpdateThreshold(a.cfg.Reason.AutoUpdateThreshold),
	}
	if a.publisher != nil {
		opts = append(opts, pipeline.WithPublisher(a.publisher))
	}
	if applyUpdates {
		opts = append(opts, pipeline.WithApplyUpdates(a.cfg.Spec.Paths[0]))
	}
	return pipeline.NewSession(doc, a.exec, a.reconciler, opts...)
}

func (a *app) close() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metricsServer.Shutdown(ctx)
		cancel()
	}
	if a.nc != nil {
		a.nc.Close()
	}
}
