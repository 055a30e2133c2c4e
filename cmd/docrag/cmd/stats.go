package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Long: `Show the number of indexed documents, a per-type breakdown, the
embedding backend and the indexed documentation.

For large collections the breakdown is computed from a sample and is
marked approximate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root, appOptions{embedder: true})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stats, err := a.engine.Stats(ctx)
			if err != nil {
				return err
			}
			corpora, err := a.engine.List(ctx)
			if err != nil {
				return err
			}

			embedder := a.engine.EmbedderInfo(ctx)
			status := "offline"
			if embedder.Available {
				status = "ready"
			}

			info := ui.StatusInfo{
				DataDir:        a.cfg.Paths.DataDir,
				TotalDocuments: stats.TotalDocuments,
				SampleSize:     stats.SampleSize,
				Approximate:    stats.Approximate,
				PerType:        stats.PerType,
				Corpora:        corpusInfos(corpora),
				StorageSize:    a.storageSize(),
				SearchMode:     string(a.engine.Mode()),
				EmbedderType:   string(embedder.Provider),
				EmbedderStatus: status,
				EmbedderModel:  embedder.Model,
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), false)
			if jsonOutput {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
