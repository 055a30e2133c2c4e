package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/engine"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/ui"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var (
		req   engine.IndexDocsRequest
		noTUI bool
	)

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index a documentation file or directory",
		Long: `Index a documentation file or directory under a name and version.

Markdown, text, reStructuredText, HTML and JSONL files are chunked,
embedded and written to the store. An already indexed name and version
is left untouched unless --force is given.

Examples:
  docrag index ./react-docs --name react --version 18
  docrag index guide.md --name guide --type tutorial
  docrag index ./api --name api --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req.Path = args[0]
			return runIndexing(ctx, cmd, root, noTUI, "Indexing "+req.DocName,
				func(ctx context.Context, eng *engine.Engine) (*index.Result, error) {
					return eng.IndexDocs(ctx, req)
				})
		},
	}

	cmd.Flags().StringVar(&req.DocName, "name", "", "Name of the documentation (required)")
	cmd.Flags().StringVar(&req.DocType, "type", engine.DefaultDocType, "Documentation type")
	cmd.Flags().StringVar(&req.Version, "version", engine.DefaultVersion, "Documentation version")
	cmd.Flags().BoolVar(&req.Force, "force", false, "Re-index even if already indexed")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newVaultCmd(root *rootOptions) *cobra.Command {
	var (
		req   engine.IndexVaultRequest
		noTUI bool
	)

	cmd := &cobra.Command{
		Use:   "vault [path]",
		Short: "Index a canvas vault",
		Long: `Index the canvases, canvas nodes, referenced files and standalone
markdown of a vault as a single corpus named vault:<directory>.

Without a path the configured vault (paths.vault) or the active
VaultPicker vault is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(args) > 0 {
				req.VaultPath = args[0]
			}
			return runIndexing(ctx, cmd, root, noTUI, "Indexing vault",
				func(ctx context.Context, eng *engine.Engine) (*index.Result, error) {
					return eng.IndexVault(ctx, req)
				})
		},
	}

	cmd.Flags().BoolVar(&req.Force, "force", false, "Re-index even if already indexed")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")

	return cmd
}

// runIndexing opens an engine that reports progress to a TUI or plain
// renderer and runs one indexing job.
func runIndexing(ctx context.Context, cmd *cobra.Command, root *rootOptions, noTUI bool, title string,
	run func(context.Context, *engine.Engine) (*index.Result, error)) error {
	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(noTUI),
		ui.WithTitle(title)))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	a, err := openApp(ctx, root, appOptions{embedder: true, renderer: renderer})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := run(ctx, a.engine)
	if err != nil {
		return err
	}

	slog.Info("index_command_complete",
		slog.String("run_id", result.RunID),
		slog.String("status", string(result.Status)),
		slog.String("doc_name", result.Corpus.DocName),
		slog.String("version", result.Corpus.Version),
		slog.Int("documents", result.Documents),
		slog.Int("file_errors", len(result.Errors)))
	return nil
}
