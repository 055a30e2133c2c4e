package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/engine"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
)

func newRemoveCmd(root *rootOptions) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an indexed documentation version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), root, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			removed, err := a.engine.Remove(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), false)
			if !removed {
				out.Warningf("Documentation '%s' v%s not found", args[0], version)
				return nil
			}
			out.Successf("Removed documentation '%s' v%s", args[0], version)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", engine.DefaultVersion, "Version to remove")
	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documentation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), root, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			corpora, err := a.engine.List(cmd.Context())
			if err != nil {
				return err
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), false)
			if jsonOutput {
				if corpora == nil {
					corpora = []store.IndexedCorpus{}
				}
				return renderer.RenderJSON(corpora)
			}
			return renderer.RenderCorpora(corpusInfos(corpora))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func corpusInfos(corpora []store.IndexedCorpus) []ui.CorpusInfo {
	infos := make([]ui.CorpusInfo, 0, len(corpora))
	for _, c := range corpora {
		infos = append(infos, ui.CorpusInfo{
			DocName:   c.DocName,
			Version:   c.Version,
			DocType:   c.DocType,
			Documents: c.DocumentCount,
			IndexedAt: c.IndexedAt,
		})
	}
	return infos
}
