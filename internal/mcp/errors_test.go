package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_Kinds(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{
			name:        "validation",
			err:         docerrors.ValidationError("doc_name", "doc_name is required"),
			wantCode:    ErrCodeInvalidParams,
			wantMessage: "doc_name is required",
		},
		{
			name:        "not found",
			err:         docerrors.FileNotFound("notes/missing.md"),
			wantCode:    ErrCodeNotFound,
			wantMessage: "notes/missing.md",
		},
		{
			name:        "parse",
			err:         docerrors.ParseError("arch/broken.canvas", errors.New("unexpected EOF")),
			wantCode:    ErrCodeParse,
			wantMessage: "arch/broken.canvas",
		},
		{
			name:        "backend",
			err:         docerrors.BackendError(docerrors.ErrCodeEmbeddingFailed, "embedding failed", errors.New("connection refused")),
			wantCode:    ErrCodeBackend,
			wantMessage: "embedding failed",
		},
		{
			name:        "wrapped doc error",
			err:         fmt.Errorf("outer: %w", docerrors.FileNotFound("a.md")),
			wantCode:    ErrCodeNotFound,
			wantMessage: "a.md",
		},
		{
			name:        "deadline",
			err:         context.DeadlineExceeded,
			wantCode:    ErrCodeTimeout,
			wantMessage: "timed out",
		},
		{
			name:        "canceled",
			err:         fmt.Errorf("search: %w", context.Canceled),
			wantCode:    ErrCodeTimeout,
			wantMessage: "canceled",
		},
		{
			name:        "plain error",
			err:         errors.New("boom"),
			wantCode:    ErrCodeInternalError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Contains(t, got.Message, tt.wantMessage)
			assert.NotContains(t, got.Message, "Error: ")
		})
	}
}

func TestMapError_HidesCause(t *testing.T) {
	// Given: a backend error with an internal cause
	err := docerrors.BackendError(docerrors.ErrCodeStoreWrite, "could not write records", errors.New("disk I/O error at page 42"))

	// When: mapping the error
	got := MapError(err)

	// Then: the cause is not exposed
	assert.NotContains(t, got.Message, "page 42")
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := docerrors.ValidationError("vault_path", "vault path not found").WithSuggestion("pass vault_path")

	got := MapError(err)

	assert.Contains(t, got.Message, "vault path not found")
	assert.Contains(t, got.Message, "Suggestion: pass vault_path")
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("frobnicate")
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Equal(t, "MCP error -32601: Tool 'frobnicate' not found.", err.Error())
}

func TestErrorResult(t *testing.T) {
	// Given: a not-found error
	err := docerrors.FileNotFound("notes/missing.md")

	// When: converting it to a tool result
	res := errorResult(ToolGetFile, err)

	// Then: the result is flagged and readable
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.True(t, len(text) > len("Error: "))
	assert.Contains(t, text, "Error: ")
	assert.Contains(t, text, "notes/missing.md")
}
