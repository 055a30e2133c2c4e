package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/preflight"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that docrag can run on this machine",
		Long: `Check the data directory, disk space, file descriptor limit, the
embedding backend and the default vault.

Exits with an error when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			results := preflight.New(cfg).RunAll(cmd.Context())
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"status": preflight.Summary(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				preflight.Print(cmd.OutOrStdout(), results, verbose)
			}

			if preflight.HasCriticalFailures(results) {
				return fmt.Errorf("system check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")

	return cmd
}

// precheck runs the system checks once per data directory, logging the
// results instead of printing them.
func precheck(ctx context.Context, cfg *config.Config) error {
	if !preflight.NeedsCheck(cfg.Paths.DataDir) {
		return nil
	}

	results := preflight.New(cfg).RunAll(ctx)
	for _, r := range results {
		slog.Info("preflight_check",
			slog.String("check", r.Name),
			slog.String("status", r.Status.String()),
			slog.String("message", r.Message))
	}
	if preflight.HasCriticalFailures(results) {
		return fmt.Errorf("system check failed, run 'docrag doctor' for details")
	}

	if err := preflight.MarkPassed(cfg.Paths.DataDir); err != nil {
		slog.Debug("failed to mark preflight as passed", slog.String("error", err.Error()))
	}
	return nil
}
