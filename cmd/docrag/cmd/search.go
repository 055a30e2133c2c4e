package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/engine"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/search"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// searchOutput is the JSON shape of a search.
type searchOutput struct {
	Query   string                `json:"query"`
	Mode    search.Mode           `json:"mode"`
	Results []search.RankedResult `json:"results"`
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		req    engine.SearchRequest
		format string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documentation",
		Long: `Search the indexed documentation.

Results are ranked by embedding similarity when an embedding backend is
available and by query-term frequency otherwise.

Examples:
  docrag search "useEffect cleanup"
  docrag search "routing" --doc react --version 18 --limit 3
  docrag search "payment flow" --type vault --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatText && format != formatJSON {
				return docerrors.ValidationError("format", fmt.Sprintf("unknown format %q", format)).
					WithSuggestion("use --format text or --format json")
			}
			req.Query = strings.Join(args, " ")

			a, err := openApp(cmd.Context(), root, appOptions{embedder: true})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			start := time.Now()
			results, err := a.engine.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			slog.Info("search_complete",
				slog.String("mode", string(a.engine.Mode())),
				slog.Int("results", len(results)),
				slog.Duration("took", time.Since(start)))

			out := output.New(cmd.OutOrStdout(), false)
			if format == formatJSON {
				if results == nil {
					results = []search.RankedResult{}
				}
				return out.JSON(searchOutput{Query: req.Query, Mode: a.engine.Mode(), Results: results})
			}
			out.SearchResults(req.Query, a.engine.Mode(), results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&req.DocName, "doc", "", "Only search this documentation name")
	cmd.Flags().StringVar(&req.Version, "version", "", "Only search this version")
	cmd.Flags().StringVarP(&req.DocType, "type", "t", "", "Only search this documentation type")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json")

	return cmd
}
