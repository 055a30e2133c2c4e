package embed

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/docrag/internal/config"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama HTTP API (default)
	ProviderOllama ProviderType = config.ProviderOllama

	// ProviderStatic uses hash-based embeddings with no external service
	ProviderStatic ProviderType = config.ProviderStatic

	// ProviderNone disables embeddings; retrieval falls back to lexical ranking
	ProviderNone ProviderType = config.ProviderNone
)

// ParseProvider normalizes a provider name. Unknown names map to ProviderOllama.
func ParseProvider(s string) ProviderType {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderStatic:
		return ProviderStatic
	case ProviderNone:
		return ProviderNone
	default:
		return ProviderOllama
	}
}

// NewFromConfig builds the configured embedder wrapped in a cache.
// ProviderNone returns a nil Embedder and no error.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	var inner Embedder

	switch ParseProvider(cfg.Provider) {
	case ProviderNone:
		return nil, nil

	case ProviderStatic:
		inner = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOllama:
		oc := DefaultOllamaConfig()
		if cfg.OllamaHost != "" {
			oc.Host = cfg.OllamaHost
		}
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		if cfg.Timeout > 0 {
			oc.Timeout = cfg.Timeout
		}
		e, err := NewOllamaEmbedder(ctx, oc)
		if err != nil {
			return nil, err
		}
		inner = e
	}

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

// NewWithFallback is NewFromConfig that degrades to no embedder (lexical
// ranking) when the backend is unreachable instead of failing.
func NewWithFallback(ctx context.Context, cfg config.EmbeddingsConfig) Embedder {
	e, err := NewFromConfig(ctx, cfg)
	if err != nil {
		slog.Warn("embedding backend unavailable, using lexical search",
			append([]any{slog.String("provider", cfg.Provider)}, docerrors.LogAttrs(err)...)...)
		return nil
	}
	return e
}

// EmbedderInfo describes an embedder
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo describes embedder. A nil embedder reports ProviderNone.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	if embedder == nil {
		return EmbedderInfo{Provider: ProviderNone}
	}

	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.Inner()
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}
	return info
}
