// Package config loads docrag configuration from defaults, YAML files,
// a .env file and DOCRAG_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderStatic = "static"
	ProviderNone   = "none"
)

// Config is the complete docrag configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Server     ServerConfig     `yaml:"server"`
}

// PathsConfig locates persistent state and the default vault.
type PathsConfig struct {
	// DataDir holds the SQLite store, vector index and lock file.
	DataDir string `yaml:"data_dir"`
	// Vault is the default canvas vault for vault/graph/file operations.
	Vault string `yaml:"vault"`
}

// EmbeddingsConfig selects and tunes the embedding backend.
type EmbeddingsConfig struct {
	// Provider is ollama, static or none (lexical ranking only).
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	OllamaHost string        `yaml:"ollama_host"`
	BatchSize  int           `yaml:"batch_size"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
	// Dimensions applies to the static provider only.
	Dimensions int `yaml:"dimensions"`
}

// IndexConfig tunes source loading and writes.
type IndexConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	Workers      int      `yaml:"workers"`
	MaxBatchSize int      `yaml:"max_batch_size"`
	Extensions   []string `yaml:"extensions"`
	Exclude      []string `yaml:"exclude"`
	// WatchDebounce is the quiet period before watch mode re-indexes.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// SearchConfig bounds result counts.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	LogLevel string `yaml:"log_level"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: DefaultDataDir(),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   ProviderOllama,
			Model:      "nomic-embed-text",
			OllamaHost: "http://localhost:11434",
			BatchSize:  32,
			CacheSize:  1000,
			Timeout:    60 * time.Second,
			Dimensions: 256,
		},
		Index: IndexConfig{
			ChunkSize:     1000,
			Workers:       runtime.NumCPU(),
			MaxBatchSize:  5461,
			Extensions:    []string{".md", ".txt", ".rst", ".html", ".jsonl"},
			Exclude:       []string{".git", ".obsidian", ".trash", ".docrag", "node_modules"},
			WatchDebounce: 500 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit: 5,
			MaxLimit:     50,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// DefaultDataDir returns ~/.docrag/data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docrag", "data")
	}
	return filepath.Join(home, ".docrag", "data")
}

// GetUserConfigPath follows XDG:
//   - $XDG_CONFIG_HOME/docrag/config.yaml
//   - ~/.config/docrag/config.yaml
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml")
}

// Load applies, in increasing precedence:
//  1. defaults
//  2. user config (~/.config/docrag/config.yaml)
//  3. project config (.docrag.yaml or .docrag.yml in dir)
//  4. dir/.env (never overrides variables already set)
//  5. DOCRAG_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	for _, name := range []string{".docrag.yaml", ".docrag.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	if envPath := filepath.Join(dir, ".env"); fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single explicit YAML file and env.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = expandHome(other.Paths.DataDir)
	}
	if other.Paths.Vault != "" {
		c.Paths.Vault = expandHome(other.Paths.Vault)
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}

	if other.Index.ChunkSize != 0 {
		c.Index.ChunkSize = other.Index.ChunkSize
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Index.MaxBatchSize != 0 {
		c.Index.MaxBatchSize = other.Index.MaxBatchSize
	}
	if len(other.Index.Extensions) > 0 {
		c.Index.Extensions = other.Index.Extensions
	}
	if len(other.Index.Exclude) > 0 {
		// extend, never replace, the built-in excludes
		c.Index.Exclude = append(c.Index.Exclude, other.Index.Exclude...)
	}
	if other.Index.WatchDebounce != 0 {
		c.Index.WatchDebounce = other.Index.WatchDebounce
	}

	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies DOCRAG_* variables. Unparseable numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCRAG_DATA_DIR"); v != "" {
		c.Paths.DataDir = expandHome(v)
	}
	if v := os.Getenv("DOCRAG_VAULT"); v != "" {
		c.Paths.Vault = expandHome(v)
	}
	if v := os.Getenv("DOCRAG_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCRAG_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDINGS_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.BatchSize = n
		}
	}
	if v := os.Getenv("DOCRAG_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.ChunkSize = n
		}
	}
	if v := os.Getenv("DOCRAG_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.Workers = n
		}
	}
	if v := os.Getenv("DOCRAG_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Embeddings.Provider) {
	case ProviderOllama, ProviderStatic, ProviderNone:
	default:
		return fmt.Errorf("embeddings.provider must be 'ollama', 'static' or 'none', got %q", c.Embeddings.Provider)
	}

	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.CacheSize < 0 {
		return fmt.Errorf("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize)
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}
	if c.Index.MaxBatchSize <= 0 {
		return fmt.Errorf("index.max_batch_size must be positive, got %d", c.Index.MaxBatchSize)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search limits must satisfy 0 < default_limit <= max_limit, got %d/%d",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ActiveVaultPath reads the VaultPicker bridge file
// (~/.vaultpicker/active_vault.json, {"path": "..."}).
// It returns "" when the file is absent or unreadable.
func ActiveVaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return readVaultPicker(filepath.Join(home, ".vaultpicker", "active_vault.json"))
}

func readVaultPicker(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var v struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return ""
	}
	return v.Path
}

// ResolveVault picks the vault for a request: explicit, then config, then VaultPicker.
func (c *Config) ResolveVault(explicit string) string {
	if explicit != "" {
		return expandHome(explicit)
	}
	if c.Paths.Vault != "" {
		return c.Paths.Vault
	}
	return ActiveVaultPath()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
