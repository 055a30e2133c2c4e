package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/logging"
	"github.com/Aman-CERP/docrag/internal/mcp"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server over stdio.

Exposes the index, index_vault, search, remove, list, stats, get_graph
and get_file tools plus corpus, stats and vault file resources.

Logs go to ~/.docrag/logs/server.log; stdout carries only JSON-RPC.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport (stdio)")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, transport string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := precheck(ctx, cfg); err != nil {
		return err
	}

	a, err := openApp(ctx, root, appOptions{embedder: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// The configured level applies unless --debug raised it.
	if !root.debug && a.cfg.Server.LogLevel != "" {
		root.stopLogging()
		cleanup, err := logging.Install(logging.MCPConfig(a.cfg.Server.LogLevel))
		if err != nil {
			return err
		}
		root.loggingCleanup = cleanup
	}

	srv, err := mcp.NewServer(a.engine)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	slog.Info("mcp_server_starting",
		slog.String("transport", transport),
		slog.String("data_dir", a.cfg.Paths.DataDir),
		slog.String("mode", string(a.engine.Mode())))

	err = srv.Serve(ctx, transport)
	if ctx.Err() != nil {
		slog.Info("mcp_server_stopped")
		return nil
	}
	return err
}
