// Package logging configures structured slog output for docrag.
//
// Logs are JSON lines written to a size-rotated file under ~/.docrag/logs/.
// CLI commands may tee to stderr; the MCP server never writes logs to
// stdout or stderr because stdout carries the JSON-RPC stream.
package logging
