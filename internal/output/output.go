// Package output formats CLI command results: status lines, search hits,
// JSON documents and coded errors.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/search"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
)

// SnippetLength is the number of characters of content shown per search hit.
const SnippetLength = 300

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Colors follow ui.GetStyles.
func New(out io.Writer, noColor bool) *Writer {
	return &Writer{out: out, styles: ui.GetStyles(noColor)}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error. Coded errors show their hint and code.
func (w *Writer) Error(err error) {
	text := strings.TrimRight(docerrors.FormatForCLI(err), "\n")
	first, rest, _ := strings.Cut(text, "\n")
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(first))
	if rest != "" {
		_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(rest))
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Text prints s followed by a newline when it lacks one.
func (w *Writer) Text(s string) {
	_, _ = io.WriteString(w.out, s)
	if !strings.HasSuffix(s, "\n") {
		_, _ = fmt.Fprintln(w.out)
	}
}

// JSON prints v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SearchResults prints ranked hits with title, corpus, score, source and a
// content snippet.
func (w *Writer) SearchResults(query string, mode search.Mode, results []search.RankedResult) {
	if len(results) == 0 {
		w.Warningf("No results for %q", query)
		return
	}

	header := fmt.Sprintf("%d results for %q", len(results), query)
	_, _ = fmt.Fprintf(w.out, "%s %s\n\n", w.styles.Header.Render(header), w.styles.Dim.Render("("+string(mode)+")"))

	for i, r := range results {
		title := r.Title()
		if title == "" {
			title = r.Source
		}
		corpus := r.Metadata[store.MetaDocName]
		if v := r.Metadata[store.MetaVersion]; v != "" {
			corpus += "@" + v
		}

		_, _ = fmt.Fprintf(w.out, "%s %s  %s  %s\n",
			w.styles.Label.Render(fmt.Sprintf("%d.", i+1)),
			w.styles.Active.Render(title),
			w.styles.Dim.Render(corpus),
			w.styles.Stage.Render(fmt.Sprintf("%.3f", r.Score)))
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.styles.Dim.Render(r.Source))
		for _, line := range strings.Split(Snippet(r.Content, SnippetLength), "\n") {
			_, _ = fmt.Fprintf(w.out, "   %s\n", line)
		}
		if i < len(results)-1 {
			w.Newline()
		}
	}
}

// Snippet shortens s to at most n characters, cutting at a word boundary
// when one is close, and collapses blank lines.
func Snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)*3/4 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
