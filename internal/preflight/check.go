// Package preflight checks that docrag can run on this machine: the data
// directory is writable with free space, the file descriptor limit suits
// watch mode, the embedding backend answers and a vault can be resolved.
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if preflight.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
)

// Status is the outcome of a check.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// Result is the outcome of one check.
type Result struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Required bool   `json:"required"`
}

// IsCritical reports a failed required check.
func (r Result) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// ProbeFunc builds the configured embedder and describes it.
type ProbeFunc func(ctx context.Context, cfg config.EmbeddingsConfig) (embed.EmbedderInfo, error)

// Checker runs the checks against one configuration.
type Checker struct {
	cfg   *config.Config
	probe ProbeFunc
}

// Option configures a Checker.
type Option func(*Checker)

// WithProbe replaces the embedder probe.
func WithProbe(p ProbeFunc) Option {
	return func(c *Checker) { c.probe = p }
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{cfg: cfg, probe: probeEmbedder}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check in a fixed order.
func (c *Checker) RunAll(ctx context.Context) []Result {
	dataDir := c.cfg.Paths.DataDir
	return []Result{
		c.CheckWritePermissions(dataDir),
		c.CheckDiskSpace(dataDir),
		c.CheckFileDescriptors(),
		c.CheckEmbedder(ctx),
		c.CheckVault(),
	}
}

// HasCriticalFailures reports whether any required check failed.
func HasCriticalFailures(results []Result) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// Summary is "failed", "ready_with_warnings" or "ready".
func Summary(results []Result) string {
	warnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			warnings = true
		}
	}
	if warnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// Print writes a report of results to w.
func Print(w io.Writer, results []Result, verbose bool) {
	_, _ = fmt.Fprintln(w, "docrag system check")
	_, _ = fmt.Fprintln(w)

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if verbose && r.Details != "" {
			_, _ = fmt.Fprintf(w, "       %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Status: %s\n", strings.ToUpper(Summary(results)))

	var problems []string
	for _, r := range results {
		if r.Status != StatusPass && r.Details != "" && !verbose {
			problems = append(problems, r.Name+": "+r.Details)
		}
	}
	if len(problems) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, p := range problems {
			_, _ = fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
