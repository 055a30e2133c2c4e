package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed JSON log line.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
	Raw   string
	Valid bool
}

// Tail returns the last n lines of path at or above minLevel.
// Lines that are not JSON are kept and marked invalid.
func Tail(path string, n int, minLevel string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	threshold := ParseLevel(minLevel)
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e := ParseEntry(line)
		if e.Valid && ParseLevel(e.Level) < threshold {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseEntry decodes a slog JSON line.
func ParseEntry(line string) Entry {
	e := Entry{Raw: line}

	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return e
	}

	e.Valid = true
	e.Attrs = make(map[string]any)
	for k, v := range raw {
		switch k {
		case slog.TimeKey:
			if s, ok := v.(string); ok {
				e.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case slog.LevelKey:
			e.Level, _ = v.(string)
		case slog.MessageKey:
			e.Msg, _ = v.(string)
		default:
			e.Attrs[k] = v
		}
	}
	return e
}

// Format renders an entry as "15:04:05.000 LEVEL msg k=v ...", keys sorted.
func (e Entry) Format() string {
	if !e.Valid {
		return e.Raw
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s %s", e.Time.Format("15:04:05.000"), e.Level, e.Msg)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attrs[k])
	}
	return sb.String()
}

// Print writes formatted entries to w.
func Print(w io.Writer, entries []Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(w, e.Format())
	}
}
