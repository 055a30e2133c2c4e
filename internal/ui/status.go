package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// CorpusInfo is one indexed (doc name, version) pair.
type CorpusInfo struct {
	DocName   string    `json:"doc_name"`
	Version   string    `json:"version"`
	DocType   string    `json:"doc_type"`
	Documents int       `json:"documents"`
	IndexedAt time.Time `json:"indexed_at"`
}

// StatusInfo describes the collection for the stats command.
type StatusInfo struct {
	DataDir        string         `json:"data_dir"`
	TotalDocuments int            `json:"total_documents"`
	SampleSize     int            `json:"sample_size"`
	Approximate    bool           `json:"approximate"`
	PerType        map[string]int `json:"doc_types,omitempty"`
	Corpora        []CorpusInfo   `json:"corpora"`
	StorageSize    int64          `json:"storage_size"`

	SearchMode     string `json:"search_mode"` // "vector" or "lexical"
	EmbedderType   string `json:"embedder_type"`
	EmbedderStatus string `json:"embedder_status"` // "ready", "offline"
	EmbedderModel  string `json:"embedder_model,omitempty"`
}

// StatusRenderer displays collection status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor), now: time.Now}
}

// Render writes info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Collection: "+info.DataDir))

	docs := fmt.Sprintf("%d", info.TotalDocuments)
	if info.Approximate {
		docs += fmt.Sprintf(" (type counts from a sample of %d)", info.SampleSize)
	}
	_, _ = fmt.Fprintf(r.out, "  Documents:   %s\n", docs)
	_, _ = fmt.Fprintf(r.out, "  Storage:     %s\n", FormatBytes(info.StorageSize))
	_, _ = fmt.Fprintf(r.out, "  Search mode: %s\n", info.SearchMode)
	_, _ = fmt.Fprintln(r.out)

	if len(info.PerType) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Types:")
		types := make([]string, 0, len(info.PerType))
		for t := range info.PerType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			_, _ = fmt.Fprintf(r.out, "    %-22s %d\n", t, info.PerType[t])
		}
		_, _ = fmt.Fprintln(r.out)
	}

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Type:   %s\n", info.EmbedderType)
	_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.EmbedderStatus))
	if info.EmbedderModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:  %s\n", info.EmbedderModel)
	}
	_, _ = fmt.Fprintln(r.out)

	return r.RenderCorpora(info.Corpora)
}

// RenderCorpora writes the indexed corpus table.
func (r *StatusRenderer) RenderCorpora(corpora []CorpusInfo) error {
	if len(corpora) == 0 {
		_, _ = fmt.Fprintln(r.out, "  No documentation indexed yet.")
		return nil
	}
	_, _ = fmt.Fprintln(r.out, "  Indexed:")
	for _, c := range corpora {
		_, _ = fmt.Fprintf(r.out, "    %s@%s  %s  %d docs  %s\n",
			c.DocName, c.Version, r.styles.Label.Render(c.DocType), c.Documents,
			r.styles.Dim.Render(r.formatTime(c.IndexedAt)))
	}
	return nil
}

// RenderJSON writes v as indented JSON.
func (r *StatusRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	default:
		return status
	}
}

func (r *StatusRenderer) formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := r.now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatBytes formats a byte count for humans.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
