package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeTypeForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"notes/api.md", "text/markdown"},
		{"README.MD", "text/markdown"},
		{"guide.rst", "text/x-rst"},
		{"page.html", "text/html"},
		{"arch/system.canvas", "application/json"},
		{"dump.jsonl", "application/jsonl"},
		{"notes.txt", "text/plain"},
		{"Makefile", "text/plain"},
		{"image.png", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, MimeTypeForPath(tt.path))
		})
	}
}
