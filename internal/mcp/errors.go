// Package mcp exposes the docrag engine as a Model Context Protocol server
// over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeNotFound indicates a missing file, canvas or corpus.
	ErrCodeNotFound = -32001

	// ErrCodeBackend indicates the embedder or store failed.
	ErrCodeBackend = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeParse indicates a source file could not be parsed.
	ErrCodeParse = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError is an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an engine error to an MCP error. The message is the
// user-facing text of the error, without internal causes.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	}

	de, ok := docerrors.As(err)
	if !ok {
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}

	msg := strings.TrimPrefix(docerrors.FormatForUser(de, false), "Error: ")
	switch docerrors.KindOf(de) {
	case docerrors.KindValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
	case docerrors.KindNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: msg}
	case docerrors.KindParse:
		return &MCPError{Code: ErrCodeParse, Message: msg}
	case docerrors.KindBackend:
		return &MCPError{Code: ErrCodeBackend, Message: msg}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: msg}
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// errorResult turns err into a tool result flagged IsError, so the client
// sees a readable message instead of a protocol failure.
func errorResult(tool string, err error) *mcp.CallToolResult {
	mapped := MapError(err)
	attrs := []any{
		slog.String("tool", tool),
		slog.Int("mcp_code", mapped.Code),
	}
	if de, ok := docerrors.As(err); ok {
		attrs = append(attrs, docerrors.LogAttrs(de)...)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	slog.Warn("tool_failed", attrs...)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + mapped.Message}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
