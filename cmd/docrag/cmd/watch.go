package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docrag/internal/engine"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/lifecycle"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/watcher"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		poll     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [vault]",
		Short: "Keep a vault index fresh while files change",
		Long: `Index a vault, then watch it and rebuild the vault corpus whenever
canvas or markdown files change. Changes arriving during a rebuild are
folded into the next one.

Use --poll for synced or network-mounted vaults that deliver no file
system events.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			explicit := ""
			if len(args) > 0 {
				explicit = args[0]
			}
			return runWatch(ctx, cmd, root, explicit, watcher.Options{ForcePolling: poll, PollInterval: interval})
		},
	}

	cmd.Flags().BoolVar(&poll, "poll", false, "Poll for changes instead of using file system events")
	cmd.Flags().DurationVar(&interval, "interval", watcher.DefaultOptions().PollInterval, "Polling interval")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *rootOptions, explicit string, wopts watcher.Options) error {
	out := output.New(cmd.OutOrStdout(), false)

	a, err := openApp(ctx, root, appOptions{embedder: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	vault := a.cfg.ResolveVault(explicit)
	if vault == "" {
		return docerrors.ValidationError("vault_path", "vault path not found").
			WithSuggestion("pass a vault path, set paths.vault in the config, or pick an active vault in VaultPicker")
	}

	result, err := a.engine.IndexVault(ctx, engine.IndexVaultRequest{VaultPath: vault})
	if err != nil {
		return err
	}
	if result.Status == lifecycle.StatusAlreadyIndexed {
		out.Statusf("•", "%s already indexed (%d documents)", result.Corpus.DocName, result.Corpus.DocumentCount)
	} else {
		out.Successf("Indexed %s: %d documents", result.Corpus.DocName, result.Documents)
	}

	wopts.DebounceWindow = a.cfg.Index.WatchDebounce
	wopts.Extensions = a.cfg.Index.Extensions
	wopts.Exclude = a.cfg.Index.Exclude
	w, err := watcher.NewVaultWatcher(wopts)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	reindexer := watcher.NewReindexer(w,
		func(ctx context.Context, _ []watcher.FileEvent) error {
			_, err := a.engine.IndexVault(ctx, engine.IndexVaultRequest{VaultPath: vault, Force: true})
			return err
		},
		func(changes int, took time.Duration, err error) {
			if err != nil {
				out.Error(err)
				return
			}
			out.Successf("Re-indexed after %d changes in %s", changes, took.Round(time.Millisecond))
		})

	out.Statusf("👀", "Watching %s (%s)", vault, w.Mode())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Start(gctx, vault) })
	g.Go(func() error { return reindexer.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
