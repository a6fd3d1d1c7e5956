package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/specdrift/pipeline"
)

func checkCmd(configPath *string) *cobra.Command {
	var (
		baseURL  string
		specPath string
		apply    bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "check [METHOD PATH]",
		Short: "Verify the contract against the live API",
		Long: `Check probes the API and compares each response with the contract.
With no arguments every parameter-free operation is checked, filtered
by the configured target patterns. With METHOD and PATH a single
operation is checked, e.g.:

  specdrift check GET /orders/42`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return fmt.Errorf("expected METHOD and PATH, got only %q", args[0])
			}

			logger := slog.Default()
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.API.BaseURL = baseURL
			}
			if specPath != "" {
				cfg.Spec.Paths = []string{specPath}
			}
			if apply {
				cfg.Reason.ApplyUpdates = true
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			doc, err := a.loadDocuments()
			if err != nil {
				return err
			}
			session := a.session(doc, cfg.Reason.ApplyUpdates)

			var targets []pipeline.Target
			if len(args) == 2 {
				targets = []pipeline.Target{{Method: strings.ToUpper(args[0]), Path: args[1]}}
			} else {
				targets, err = session.Targets(cfg.Spec.Targets)
				if err != nil {
					return err
				}
				if len(targets) == 0 {
					return fmt.Errorf("no checkable operations in %s", doc.Name)
				}
			}

			reports := session.Run(cmd.Context(), targets)
			return renderReports(cmd, reports, asJSON)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override the API base URL")
	cmd.Flags().StringVar(&specPath, "spec", "", "Override the contract document path")
	cmd.Flags().BoolVar(&apply, "apply", false, "Write auto-approved updates back to the document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit reports as JSON")

	return cmd
}

func renderReports(cmd *cobra.Command, reports []*pipeline.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			renderReport(cmd, r)
		}
	}

	failed := 0
	for _, r := range reports {
		if r.Outcome == pipeline.OutcomeError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed to run", failed, len(reports))
	}
	return nil
}

func renderReport(cmd *cobra.Command, r *pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-12s %s (status %d, %dms)\n", r.Outcome, r.Endpoint, r.Status, r.DurationMS)
	if r.Error != "" {
		fmt.Fprintf(out, "    error: %s\n", r.Error)
	}
	if r.Summary != nil {
		for _, a := range r.Summary.Anomalies {
			fmt.Fprintf(out, "    %s\n", a.String())
		}
	}
	if r.Decision != nil {
		fmt.Fprintf(out, "    decision: %s (confidence %.2f)\n", r.Decision.Classification, r.Decision.Confidence)
		if r.Decision.Notes != "" {
			fmt.Fprintf(out, "    notes: %s\n", r.Decision.Notes)
		}
	}
	if r.AutoUpdate {
		state := "recommended"
		if r.Updated {
			state = "applied"
		}
		fmt.Fprintf(out, "    auto-update %s (%d instructions)\n", state, len(r.Audit))
	}
}
