package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/specdrift/watch"
)

func watchCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-verify whenever a contract document changes",
		Long: `Watch runs a full check, then waits for the contract documents to
change on disk and re-runs the check on each change, debounced so an
editor save burst triggers one run. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runAll := func() error {
				doc, err := a.loadDocuments()
				if err != nil {
					return err
				}
				session := a.session(doc, cfg.Reason.ApplyUpdates)
				targets, err := session.Targets(cfg.Spec.Targets)
				if err != nil {
					return err
				}
				reports := session.Run(ctx, targets)
				return renderReports(cmd, reports, asJSON)
			}

			if err := runAll(); err != nil {
				logger.Warn("initial check failed", "error", err)
			}

			watcher, err := watch.NewWatcher(cfg.Spec.Paths,
				watch.WithDebounce(cfg.Watch.Debounce.Std()),
				watch.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = watcher.Stop() }()

			for {
				select {
				case <-ctx.Done():
					logger.Info("watch stopped")
					return nil
				case changed, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					logger.Info("documents changed, re-checking", "paths", changed)
					if err := runAll(); err != nil {
						logger.Warn("check failed", "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit reports as JSON")
	return cmd
}
