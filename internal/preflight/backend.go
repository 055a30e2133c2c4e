package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/docrag/internal/canvas"
	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

func probeEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (embed.EmbedderInfo, error) {
	e, err := embed.NewFromConfig(ctx, cfg)
	if err != nil {
		return embed.EmbedderInfo{Provider: embed.ParseProvider(cfg.Provider)}, err
	}
	if e != nil {
		defer func() { _ = e.Close() }()
	}
	return embed.GetInfo(ctx, e), nil
}

// CheckEmbedder builds the configured embedder. Without one, search falls
// back to lexical ranking, so failures only warn.
func (c *Checker) CheckEmbedder(ctx context.Context) Result {
	result := Result{Name: "embedder"}

	info, err := c.probe(ctx, c.cfg.Embeddings)
	switch {
	case err != nil:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable, search will be lexical", c.cfg.Embeddings.Provider)
		result.Details = docerrors.FormatForUser(err, false)
	case info.Provider == embed.ProviderNone:
		result.Status = StatusWarn
		result.Message = "no embedder configured, search will be lexical"
	case !info.Available:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s (%s) not ready", info.Provider, info.Model)
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s (%s, %d dims)", info.Provider, info.Model, info.Dimensions)
	}
	return result
}

// CheckVault reports the vault that vault operations default to.
func (c *Checker) CheckVault() Result {
	result := Result{Name: "vault"}

	vault := c.cfg.ResolveVault("")
	if vault == "" {
		result.Status = StatusWarn
		result.Message = "no default vault"
		result.Details = "set paths.vault or pass a vault path to vault commands"
		return result
	}

	info, err := os.Stat(vault)
	if err != nil || !info.IsDir() {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("vault not found: %s", vault)
		return result
	}

	canvases := 0
	_ = filepath.WalkDir(vault, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(d.Name()) == canvas.Extension {
			canvases++
		}
		return nil
	})

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d canvases)", vault, canvases)
	return result
}
