package mcp

// Tool names.
const (
	ToolIndex      = "index"
	ToolIndexVault = "index_vault"
	ToolSearch     = "search"
	ToolRemove     = "remove"
	ToolList       = "list"
	ToolStats      = "stats"
	ToolGetGraph   = "get_graph"
	ToolGetFile    = "get_file"
)

// IndexInput defines the input schema for the index tool.
type IndexInput struct {
	DocPath      string `json:"doc_path" jsonschema:"path to a documentation file or directory"`
	DocName      string `json:"doc_name" jsonschema:"name of the documentation, e.g. react"`
	DocType      string `json:"doc_type,omitempty" jsonschema:"kind of documentation, default general"`
	Version      string `json:"version,omitempty" jsonschema:"documentation version, default latest"`
	ForceReindex bool   `json:"force_reindex,omitempty" jsonschema:"replace an existing index of the same name and version"`
}

// IndexVaultInput defines the input schema for the index_vault tool.
type IndexVaultInput struct {
	VaultPath    string `json:"vault_path,omitempty" jsonschema:"vault directory; defaults to the configured or active vault"`
	ForceReindex bool   `json:"force_reindex,omitempty" jsonschema:"replace an existing index of the vault"`
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query   string `json:"query" jsonschema:"natural-language search query"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5, at most 50"`
	DocName string `json:"doc_name,omitempty" jsonschema:"only search this documentation"`
	Version string `json:"version,omitempty" jsonschema:"only search this version"`
	DocType string `json:"doc_type,omitempty" jsonschema:"only search this documentation type"`
}

// RemoveInput defines the input schema for the remove tool.
type RemoveInput struct {
	DocName string `json:"doc_name" jsonschema:"name of the documentation to remove"`
	Version string `json:"version,omitempty" jsonschema:"version to remove, default latest"`
}

// EmptyInput is the input of tools without arguments.
type EmptyInput struct{}

// GetGraphInput defines the input schema for the get_graph tool.
type GetGraphInput struct {
	VaultPath  string `json:"vault_path,omitempty" jsonschema:"vault directory; defaults to the configured or active vault"`
	CanvasFile string `json:"canvas_file" jsonschema:"canvas name or path relative to the vault"`
}

// GetFileInput defines the input schema for the get_file tool.
type GetFileInput struct {
	VaultPath string `json:"vault_path,omitempty" jsonschema:"vault directory; defaults to the configured or active vault"`
	FilePath  string `json:"file_path" jsonschema:"file path relative to the vault"`
}

// toolDescriptions is the description of each registered tool, in
// registration order.
var toolDescriptions = []ToolInfo{
	{
		Name:        ToolIndex,
		Description: "Index a documentation file or directory (.md, .txt, .rst, .html, .jsonl) under a name and version so it can be searched.",
	},
	{
		Name:        ToolIndexVault,
		Description: "Index a canvas vault: canvas summaries, canvas text nodes, files referenced by canvases and standalone markdown.",
	},
	{
		Name:        ToolSearch,
		Description: "Search indexed documentation. Returns the most relevant passages with their source and relevance score.",
	},
	{
		Name:        ToolRemove,
		Description: "Remove an indexed documentation version and all of its passages.",
	},
	{
		Name:        ToolList,
		Description: "List indexed documentation with version, type, document count and indexing time.",
	},
	{
		Name:        ToolStats,
		Description: "Show collection statistics: total documents and counts per documentation, type and source.",
	},
	{
		Name:        ToolGetGraph,
		Description: "Return the node and edge graph of a canvas as JSON, with the color legend and node statistics.",
	},
	{
		Name:        ToolGetFile,
		Description: "Read a file from the vault by its relative path.",
	},
}
