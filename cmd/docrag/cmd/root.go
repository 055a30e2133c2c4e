// Package cmd provides the CLI commands for docrag.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/config"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/logging"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/profiling"
	"github.com/Aman-CERP/docrag/pkg/version"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	debug      bool
	dataDir    string
	configPath string
	profile    profiling.Options

	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the docrag CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docrag",
		Short: "Documentation indexing and retrieval for AI assistants",
		Long: `docrag indexes documentation trees and canvas vaults into a local
vector store and serves ranked retrieval over them, from the command line
or as an MCP server.

Without an embedding backend it falls back to lexical ranking.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docrag version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging (also written to stderr)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Data directory (default ~/.docrag/data)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: user and project config)")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := opts.startLogging(cmd); err != nil {
			return err
		}
		return opts.startProfiling()
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		err := opts.stopProfiling()
		opts.stopLogging()
		return err
	}

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newVaultCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newRemoveCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newGraphCmd(opts))
	cmd.AddCommand(newFileCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error with its hint and code.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		output.New(os.Stderr, false).Error(err)
	}
	return err
}

// startLogging installs the slog default. The MCP server logs to file only
// so stdout stays reserved for JSON-RPC.
func (o *rootOptions) startLogging(cmd *cobra.Command) error {
	var logCfg logging.Config
	switch {
	case cmd.Name() == "serve":
		logCfg = logging.MCPConfig("")
		if o.debug {
			logCfg.Level = "debug"
		}
	case o.debug:
		logCfg = logging.DebugConfig()
	default:
		logCfg = logging.DefaultConfig()
	}

	cleanup, err := logging.Install(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup

	if o.debug {
		slog.Debug("debug logging enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Short()))
	}
	return nil
}

func (o *rootOptions) startProfiling() error {
	if !o.profile.Enabled() {
		return nil
	}
	session, err := profiling.Start(o.profile)
	if err != nil {
		return err
	}
	o.profiler = session
	return nil
}

func (o *rootOptions) stopProfiling() error {
	if o.profiler == nil {
		return nil
	}
	err := o.profiler.Stop()
	o.profiler = nil
	return err
}

func (o *rootOptions) stopLogging() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// loadConfig loads --config when given, otherwise the layered config for
// the working directory, then applies --data-dir.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cwd, werr := os.Getwd()
		if werr != nil {
			cwd = "."
		}
		cfg, err = config.Load(cwd)
	}
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeConfigInvalid, err.Error(), err).
			WithSuggestion("check the config file or DOCRAG_* environment variables")
	}
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
	}
	return cfg, nil
}
