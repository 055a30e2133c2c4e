package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

const systemCanvas = `{
  "nodes": [
    {"id": "n1", "type": "text", "text": "Auth service issues tokens", "color": "1"},
    {"id": "n2", "type": "file", "file": "notes/api.md"}
  ],
  "edges": [{"id": "e1", "fromNode": "n1", "toNode": "n2", "label": "documents"}]
}`

// testEnv is an isolated home, data dir, docs tree and vault.
type testEnv struct {
	home    string
	config  string
	dataDir string
	docs    string
	vault   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	env := &testEnv{
		home:    home,
		config:  filepath.Join(home, "docrag.yaml"),
		dataDir: filepath.Join(home, "data"),
		docs:    filepath.Join(home, "docs"),
		vault:   filepath.Join(home, "vault"),
	}

	files := map[string]string{
		filepath.Join(env.docs, "hooks.md"):              "# Hooks\nHooks let function components use state.",
		filepath.Join(env.docs, "effects.txt"):           "useEffect runs after render.",
		filepath.Join(env.vault, "arch", "system.canvas"): systemCanvas,
		filepath.Join(env.vault, "notes", "api.md"):       "The API validates tokens on every request.",
	}
	for path, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := "embeddings:\n  provider: none\nindex:\n  workers: 2\n  watch_debounce: 50ms\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	return env
}

// run executes the root command with the env's config and data dir.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", e.config, "--data-dir", e.dataDir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{
		"index", "vault", "search", "remove", "list", "stats",
		"graph", "file", "serve", "watch", "config", "doctor", "logs", "version",
	} {
		t.Run(name, func(t *testing.T) {
			found, _, err := root.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, found.Name())
		})
	}

	for _, flag := range []string{"debug", "data-dir", "config", "profile-cpu", "profile-mem", "profile-trace"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestIndexSearchListRemove(t *testing.T) {
	env := newTestEnv(t)

	// Given: an indexed docs tree
	out, err := env.run(t, "index", env.docs, "--name", "react", "--version", "18", "--no-tui")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Complete: react@18")

	// When: indexing it again without --force
	out, err = env.run(t, "index", env.docs, "--name", "react", "--version", "18", "--no-tui")

	// Then: nothing is rewritten
	require.NoError(t, err)
	assert.Contains(t, out, "Already indexed: react@18")

	// When: searching as JSON
	out, err = env.run(t, "search", "hooks", "--format", "json", "--doc", "react")
	require.NoError(t, err)

	// Then: the lexical ranker finds the hooks page first
	var res searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "hooks", res.Query)
	assert.EqualValues(t, "lexical", res.Mode)
	require.NotEmpty(t, res.Results)
	assert.Contains(t, res.Results[0].Content, "Hooks")

	// When: searching as text
	out, err = env.run(t, "search", "hooks")
	require.NoError(t, err)
	assert.Contains(t, out, `for "hooks"`)

	// When: listing
	out, err = env.run(t, "list", "--json")
	require.NoError(t, err)
	var corpora []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &corpora))
	require.Len(t, corpora, 1)
	assert.Equal(t, "react", corpora[0]["doc_name"])
	assert.Equal(t, "18", corpora[0]["version"])

	// When: removing, then removing again
	out, err = env.run(t, "remove", "react", "--version", "18")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed documentation 'react' v18")

	out, err = env.run(t, "remove", "react", "--version", "18")
	require.NoError(t, err)
	assert.Contains(t, out, "not found")

	// Then: nothing is listed
	out, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documentation indexed yet.")
}

func TestIndexCmd_RequiresName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "index", env.docs)

	assert.Error(t, err)
}

func TestIndexCmd_MissingPath(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "index", filepath.Join(env.home, "missing"), "--name", "x", "--no-tui")

	require.Error(t, err)
	assert.True(t, docerrors.IsValidation(err) || docerrors.IsNotFound(err), err.Error())
}

func TestSearchCmd_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"search", "hooks", "--format", "xml"}},
		{"no query", []string{"search"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestVaultCommands(t *testing.T) {
	env := newTestEnv(t)

	// Given: an indexed vault
	out, err := env.run(t, "vault", env.vault, "--no-tui")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Complete: vault:vault@latest")

	// When: asking for the canvas graph by name
	out, err = env.run(t, "graph", "system", "--vault", env.vault)
	require.NoError(t, err)

	// Then: nodes, edges and the legend are returned
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "nodes")
	assert.Contains(t, doc, "edges")
	assert.Contains(t, doc, "color_legend")

	// When: reading a vault file
	out, err = env.run(t, "file", "notes/api.md", "--vault", env.vault)
	require.NoError(t, err)
	assert.Equal(t, "The API validates tokens on every request.\n", out)

	// When: the file escapes the vault
	_, err = env.run(t, "file", "../docs/hooks.md", "--vault", env.vault)
	assert.True(t, docerrors.IsValidation(err))

	// When: the canvas does not exist
	_, err = env.run(t, "graph", "missing", "--vault", env.vault)
	assert.True(t, docerrors.IsNotFound(err))
}

func TestVaultCmd_NoVault(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "vault", "--no-tui")

	require.Error(t, err)
	assert.True(t, docerrors.IsValidation(err))
}

func TestStatsCmd(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "index", env.docs, "--name", "react", "--no-tui")
	require.NoError(t, err)

	out, err := env.run(t, "stats", "--json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.EqualValues(t, 2, info["total_documents"])
	assert.Equal(t, "lexical", info["search_mode"])
	assert.Equal(t, "none", info["embedder_type"])
	assert.Greater(t, info["storage_size"], float64(0))

	out, err = env.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:   2")
	assert.Contains(t, out, "react@latest")
}

func TestConfigCmd(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "config", "show", "--json")
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	paths := cfg["Paths"].(map[string]any)
	assert.Equal(t, env.dataDir, paths["DataDir"])

	out, err = env.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.home, ".config", "docrag", "config.yaml"), strings.TrimSpace(out))

	out, err = env.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, filepath.Join(env.home, ".config", "docrag", "config.yaml"))

	out, err = env.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestConfigCmd_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte("embeddings:\n  provider: magic\n"), 0o644))

	_, err := env.run(t, "list")

	require.Error(t, err)
	assert.Equal(t, docerrors.ErrCodeConfigInvalid, docerrors.GetCode(err))
}

func TestLogsCmd(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "index", env.docs, "--name", "react", "--no-tui")
	require.NoError(t, err)

	out, err := env.run(t, "logs", "--filter", "index_command_complete")

	require.NoError(t, err)
	assert.Contains(t, out, "index_command_complete")
	assert.Contains(t, out, "doc_name=react")
}

// syncBuffer is a bytes.Buffer safe for the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCmd_ReindexesOnChange(t *testing.T) {
	env := newTestEnv(t)

	// Given: a polling watch over the vault
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCmd()
	buf := &syncBuffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--config", env.config, "--data-dir", env.dataDir,
		"watch", env.vault, "--poll", "--interval", "50ms"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Watching")
	}, 5*time.Second, 20*time.Millisecond)

	// When: a note is added
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(env.vault, "notes", "auth.md"), []byte("Tokens expire after an hour."), 0o644))

	// Then: the vault is re-indexed
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Re-indexed")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, buf.String(), "Indexed vault:vault")
}

func TestDoctorCmd(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "doctor", "--json")

	require.NoError(t, err, out)
	var report struct {
		Status string           `json:"status"`
		Checks []map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "ready_with_warnings", report.Status)
	assert.Len(t, report.Checks, 5)
	assert.DirExists(t, env.dataDir)
}

func TestProfileFlags(t *testing.T) {
	env := newTestEnv(t)
	heap := filepath.Join(env.home, "heap.prof")
	cpu := filepath.Join(env.home, "cpu.prof")

	_, err := env.run(t, "--profile-mem", heap, "--profile-cpu", cpu, "list")

	require.NoError(t, err)
	assert.FileExists(t, heap)
	assert.FileExists(t, cpu)
}
