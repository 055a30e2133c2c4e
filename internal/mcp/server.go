package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docrag/internal/engine"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "docrag"

// Server is the MCP server for docrag.
// It exposes the engine operations as tools and a few read-only resources.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server around eng.
func NewServer(eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		engine: eng,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolDescriptions))
	copy(out, toolDescriptions)
	return out
}

func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	addTool(s, ToolIndex, s.handleIndex)
	addTool(s, ToolIndexVault, s.handleIndexVault)
	addTool(s, ToolSearch, s.handleSearch)
	addTool(s, ToolRemove, s.handleRemove)
	addTool(s, ToolList, s.handleList)
	addTool(s, ToolStats, s.handleStats)
	addTool(s, ToolGetGraph, s.handleGetGraph)
	addTool(s, ToolGetFile, s.handleGetFile)

	s.logger.Info("MCP tools registered", slog.Int("count", len(toolDescriptions)))
}

func addTool[In any](s *Server, name string, h func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error)) {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: name, Description: describe(name)}, h)
	s.logger.Debug("Registered tool", slog.String("name", name))
}

func describe(name string) string {
	for _, t := range toolDescriptions {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

// CallTool invokes a tool by name with JSON-like arguments, the way a client
// request would after decoding.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	switch name {
	case ToolIndex:
		return invoke(ctx, args, s.handleIndex)
	case ToolIndexVault:
		return invoke(ctx, args, s.handleIndexVault)
	case ToolSearch:
		return invoke(ctx, args, s.handleSearch)
	case ToolRemove:
		return invoke(ctx, args, s.handleRemove)
	case ToolList:
		return invoke(ctx, args, s.handleList)
	case ToolStats:
		return invoke(ctx, args, s.handleStats)
	case ToolGetGraph:
		return invoke(ctx, args, s.handleGetGraph)
	case ToolGetFile:
		return invoke(ctx, args, s.handleGetFile)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func invoke[In any](ctx context.Context, args map[string]any, h func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error)) (*mcp.CallToolResult, error) {
	var in In
	if len(args) > 0 {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, &MCPError{Code: ErrCodeInvalidParams, Message: err.Error()}
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, &MCPError{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}
	res, _, err := h(ctx, nil, in)
	return res, err
}

// run wraps a tool body with request logging and error conversion.
func (s *Server) run(ctx context.Context, tool string, body func(context.Context) (string, error)) (*mcp.CallToolResult, any, error) {
	requestID := uuid.NewString()[:8]
	start := time.Now()
	s.logger.Info(tool+" started", slog.String("request_id", requestID))

	text, err := body(ctx)
	duration := time.Since(start)
	if err != nil {
		s.logger.Debug(tool+" failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return errorResult(tool, err), nil, nil
	}

	s.logger.Info(tool+" completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration))
	return textResult(text), nil, nil
}

func (s *Server) handleIndex(ctx context.Context, _ *mcp.CallToolRequest, in IndexInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolIndex, func(ctx context.Context) (string, error) {
		res, err := s.engine.IndexDocs(ctx, engine.IndexDocsRequest{
			Path:    in.DocPath,
			DocName: in.DocName,
			DocType: in.DocType,
			Version: in.Version,
			Force:   in.ForceReindex,
		})
		if err != nil {
			return "", err
		}
		return FormatIndexResult(res), nil
	})
}

func (s *Server) handleIndexVault(ctx context.Context, _ *mcp.CallToolRequest, in IndexVaultInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolIndexVault, func(ctx context.Context) (string, error) {
		res, err := s.engine.IndexVault(ctx, engine.IndexVaultRequest{VaultPath: in.VaultPath, Force: in.ForceReindex})
		if err != nil {
			return "", err
		}
		return FormatIndexResult(res), nil
	})
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolSearch, func(ctx context.Context) (string, error) {
		results, err := s.engine.Search(ctx, engine.SearchRequest{
			Query:   in.Query,
			Limit:   in.Limit,
			DocName: in.DocName,
			Version: in.Version,
			DocType: in.DocType,
		})
		if err != nil {
			return "", err
		}
		s.logger.Debug("search ranked",
			slog.String("mode", string(s.engine.Mode())),
			slog.Int("result_count", len(results)))
		return FormatSearchResults(results), nil
	})
}

func (s *Server) handleRemove(ctx context.Context, _ *mcp.CallToolRequest, in RemoveInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolRemove, func(ctx context.Context) (string, error) {
		ver := in.Version
		if ver == "" {
			ver = engine.DefaultVersion
		}
		removed, err := s.engine.Remove(ctx, in.DocName, ver)
		if err != nil {
			return "", err
		}
		return FormatRemove(in.DocName, ver, removed), nil
	})
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolList, func(ctx context.Context) (string, error) {
		corpora, err := s.engine.List(ctx)
		if err != nil {
			return "", err
		}
		return FormatCorpora(corpora), nil
	})
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolStats, func(ctx context.Context) (string, error) {
		st, err := s.engine.Stats(ctx)
		if err != nil {
			return "", err
		}
		return FormatStats(st, s.engine.Mode()) + FormatQueryStats(s.engine.QueryStats()), nil
	})
}

func (s *Server) handleGetGraph(ctx context.Context, _ *mcp.CallToolRequest, in GetGraphInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolGetGraph, func(ctx context.Context) (string, error) {
		doc, err := s.engine.Graph(ctx, in.VaultPath, in.CanvasFile)
		if err != nil {
			return "", err
		}
		text, err := FormatJSON(doc)
		if err != nil {
			return "", docerrors.InternalError("could not encode canvas graph", err)
		}
		return text, nil
	})
}

func (s *Server) handleGetFile(ctx context.Context, _ *mcp.CallToolRequest, in GetFileInput) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, ToolGetFile, func(ctx context.Context) (string, error) {
		return s.engine.File(ctx, in.VaultPath, in.FilePath)
	})
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The engine belongs to the caller.
func (s *Server) Close() error {
	return nil
}
