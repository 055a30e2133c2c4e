package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/lifecycle"
	"github.com/Aman-CERP/docrag/internal/search"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/telemetry"
)

// Messages for empty results.
const (
	NoResultsMessage = "No relevant documentation found."
	NoCorporaMessage = "No external documentation loaded yet."
)

// timeLayout renders corpus timestamps.
const timeLayout = time.RFC3339

// FormatSearchResults renders ranked results as numbered plain-text blocks.
func FormatSearchResults(results []search.RankedResult) string {
	if len(results) == 0 {
		return NoResultsMessage
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "Result %d:\n", i+1)
		fmt.Fprintf(&sb, "Source: %s\n", r.Source)
		fmt.Fprintf(&sb, "Content: %s\n", r.Content)
		fmt.Fprintf(&sb, "Relevance Score: %.3f\n", r.Score)
		sb.WriteString("---")
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatIndexResult renders the outcome of an index or index_vault call.
func FormatIndexResult(res *index.Result) string {
	c := res.Corpus
	if res.Status == lifecycle.StatusAlreadyIndexed {
		return fmt.Sprintf("Documentation '%s' v%s is already indexed.\n"+
			"Indexed at: %s\n"+
			"Documents: %d\n"+
			"Use force_reindex=true to re-index.",
			c.DocName, c.Version, c.IndexedAt.Format(timeLayout), c.DocumentCount)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Successfully indexed '%s' v%s\n", c.DocName, c.Version)
	fmt.Fprintf(&sb, "Documents processed: %d", c.DocumentCount)
	if res.Files > 0 {
		fmt.Fprintf(&sb, "\nFiles read: %d", res.Files)
	}
	if n := len(res.Errors); n > 0 {
		fmt.Fprintf(&sb, "\nFiles skipped: %d", n)
	}
	return sb.String()
}

// FormatCorpora renders the list of indexed corpora.
func FormatCorpora(corpora []store.IndexedCorpus) string {
	if len(corpora) == 0 {
		return NoCorporaMessage
	}

	var total int
	var last time.Time
	for _, c := range corpora {
		total += c.DocumentCount
		if c.IndexedAt.After(last) {
			last = c.IndexedAt
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total documents: %d\n", total)
	fmt.Fprintf(&sb, "Last updated: %s\n", last.Format(timeLayout))
	sb.WriteString("\nLoaded documentation:")
	for _, c := range corpora {
		fmt.Fprintf(&sb, "\n\n- %s v%s\n", c.DocName, c.Version)
		fmt.Fprintf(&sb, "  Type: %s\n", c.DocType)
		fmt.Fprintf(&sb, "  Documents: %d\n", c.DocumentCount)
		fmt.Fprintf(&sb, "  Indexed: %s\n", c.IndexedAt.Format(timeLayout))
		fmt.Fprintf(&sb, "  Source: %s", c.SourcePath)
	}
	return sb.String()
}

// FormatRemove renders the outcome of a remove call.
func FormatRemove(docName, version string, removed bool) string {
	if removed {
		return fmt.Sprintf("Successfully removed '%s' v%s from index.", docName, version)
	}
	return fmt.Sprintf("Documentation '%s' v%s not found in index.", docName, version)
}

// FormatStats renders collection statistics. Per-key counts come from a
// sample when the collection is large, which the output states.
func FormatStats(st *lifecycle.Stats, mode search.Mode) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total indexed documents: %d\n", st.TotalDocuments)
	fmt.Fprintf(&sb, "Search mode: %s\n", mode)
	if st.Approximate {
		fmt.Fprintf(&sb, "Breakdown below is approximate (sample of %d).\n", st.SampleSize)
	}

	writeCounts(&sb, "DOCUMENTATION", st.PerDocName)
	writeCounts(&sb, "TYPES", st.PerType)
	writeCounts(&sb, "RECORD TYPES", st.PerRecordType)
	writeCounts(&sb, "SOURCES", st.PerSource)
	return strings.TrimRight(sb.String(), "\n")
}

// statsBody is the JSON body of the stats resource.
type statsBody struct {
	*lifecycle.Stats
	Queries telemetry.Snapshot `json:"queries"`
}

// FormatQueryStats renders the query metrics as a section appended to
// FormatStats. It is empty until a search has run.
func FormatQueryStats(q telemetry.Snapshot) string {
	if q.TotalQueries == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\nQUERIES:\n  - total: %d\n  - zero results: %d (%.1f%%)\n",
		q.TotalQueries, q.ZeroResultCount, q.ZeroResultPercentage())
	for _, b := range telemetry.Buckets {
		if n := q.LatencyDistribution[b]; n > 0 {
			fmt.Fprintf(&sb, "  - latency %s: %d\n", b, n)
		}
	}
	if len(q.TopTerms) > 0 {
		terms := make([]string, len(q.TopTerms))
		for i, tc := range q.TopTerms {
			terms[i] = fmt.Sprintf("%s (%d)", tc.Term, tc.Count)
		}
		fmt.Fprintf(&sb, "  - top terms: %s\n", strings.Join(terms, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(sb, "  - %s: %d\n", k, counts[k])
	}
}

// FormatJSON renders v as indented JSON without HTML escaping, so canvas
// text in any script survives unchanged.
func FormatJSON(v any) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
