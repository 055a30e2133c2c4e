package mcp

import (
	"context"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Resource URIs.
const (
	CorporaURI      = "docrag://corpora"
	StatsURI        = "docrag://stats"
	VaultFilePrefix = "docrag://vault/"
)

// MaxResourceSize is the maximum vault file size served as a resource (1MB).
const MaxResourceSize = 1024 * 1024

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "corpora",
			URI:         CorporaURI,
			Description: "Indexed documentation with version, type and document count",
			MIMEType:    "application/json",
		},
		s.jsonResource(CorporaURI, func(ctx context.Context) (any, error) {
			return s.engine.List(ctx)
		}),
	)

	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "stats",
			URI:         StatsURI,
			Description: "Collection statistics per documentation, type and source, plus query metrics",
			MIMEType:    "application/json",
		},
		s.jsonResource(StatsURI, s.loadStats),
	)

	s.mcp.AddResourceTemplate(
		&mcp.ResourceTemplate{
			Name:        "vault_file",
			URITemplate: VaultFilePrefix + "{+path}",
			Description: "A file of the active vault, by path relative to the vault root",
		},
		s.handleVaultFile,
	)

	s.logger.Debug("Registered resources", "count", 3)
}

func (s *Server) loadStats(ctx context.Context) (any, error) {
	st, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return statsBody{Stats: st, Queries: s.engine.QueryStats()}, nil
}

func (s *Server) jsonResource(uri string, load func(context.Context) (any, error)) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, MapError(err)
		}
		text, err := FormatJSON(v)
		if err != nil {
			return nil, MapError(docerrors.InternalError("could not encode resource", err))
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: uri, MIMEType: "application/json", Text: text},
			},
		}, nil
	}
}

func (s *Server) handleVaultFile(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return s.readVaultFile(ctx, req.Params.URI)
}

// readVaultFile serves a vault file addressed by a docrag://vault/ URI.
func (s *Server) readVaultFile(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	rel, ok := strings.CutPrefix(uri, VaultFilePrefix)
	if !ok || rel == "" {
		return nil, NewInvalidParamsError("invalid vault file URI: " + uri)
	}
	rel, err := url.PathUnescape(rel)
	if err != nil {
		return nil, NewInvalidParamsError("invalid vault file URI: " + uri)
	}

	content, err := s.engine.File(ctx, "", rel)
	if err != nil {
		return nil, MapError(err)
	}
	if len(content) > MaxResourceSize {
		return nil, NewInvalidParamsError("file too large: " + rel)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: MimeTypeForPath(rel), Text: content},
		},
	}, nil
}

// NewInvalidParamsError creates an invalid params error.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}
