package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Extension is the canvas file suffix.
const Extension = ".canvas"

// Metadata is derived from a parsed graph.
type Metadata struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NodeTypes         map[string]int `json:"node_types"`
	ColorDistribution map[string]int `json:"color_distribution"`
}

// Document is a parsed canvas with its metadata.
type Document struct {
	Path        string            `json:"canvas_path"`
	ColorLegend map[string]string `json:"color_legend"`
	*Graph
	Metadata Metadata `json:"metadata"`

	// UnknownColors lists distinct color codes outside the legend, in order of appearance.
	UnknownColors []string `json:"unknown_colors,omitempty"`
}

type rawNode struct {
	ID    *string         `json:"id"`
	Type  *string         `json:"type"`
	Text  *string         `json:"text"`
	File  *string         `json:"file"`
	Color json.RawMessage `json:"color"`
}

type rawEdge struct {
	ID       *string `json:"id"`
	FromNode *string `json:"fromNode"`
	ToNode   *string `json:"toNode"`
	Label    *string `json:"label"`
}

type rawCanvas struct {
	Nodes []rawNode `json:"nodes"`
	Edges []rawEdge `json:"edges"`
}

// colorCode reads a node color. Strings are taken as is; numbers and other
// scalars keep their JSON text, so "color": 3 is code "3". Absent or null
// means no color.
func colorCode(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Parse normalizes raw canvas JSON. path is only used for error reporting and
// Document.Path. Extra fields are ignored; missing nodes/edges arrays are empty.
func Parse(data []byte, path string) (*Document, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, docerrors.ParseError(path, fmt.Errorf("invalid JSON in canvas file: %w", err))
	}
	if _, ok := top.(map[string]any); !ok {
		return nil, docerrors.ParseError(path, fmt.Errorf("canvas document must be a JSON object"))
	}

	var raw rawCanvas
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, docerrors.ParseError(path, fmt.Errorf("canvas is not graph-shaped: %w", err))
	}

	nodes := make([]Node, 0, len(raw.Nodes))
	for i, rn := range raw.Nodes {
		if rn.ID == nil || rn.Type == nil {
			return nil, docerrors.ParseError(path, fmt.Errorf("node %d is missing id or type", i))
		}
		n := Node{ID: *rn.ID, Type: *rn.Type, Color: ColorNone}
		if rn.Text != nil {
			n.Text, n.hasText = *rn.Text, true
		}
		if rn.File != nil {
			n.File, n.hasFile = *rn.File, true
		}
		n.Color, _ = ParseColor(colorCode(rn.Color))
		nodes = append(nodes, n)
	}

	edges := make([]Edge, 0, len(raw.Edges))
	for i, re := range raw.Edges {
		if re.ID == nil || re.FromNode == nil || re.ToNode == nil {
			return nil, docerrors.ParseError(path, fmt.Errorf("edge %d is missing id, fromNode or toNode", i))
		}
		e := Edge{ID: *re.ID, FromNode: *re.FromNode, ToNode: *re.ToNode}
		if re.Label != nil {
			e.Label = *re.Label
		}
		edges = append(edges, e)
	}

	g := NewGraph(nodes, edges)
	doc := &Document{
		Path:        path,
		ColorLegend: Legend(),
		Graph:       g,
		Metadata:    ComputeMetadata(g),
	}

	seen := make(map[Color]bool)
	for _, n := range g.Nodes {
		if !n.Color.Known() && !seen[n.Color] {
			seen[n.Color] = true
			doc.UnknownColors = append(doc.UnknownColors, string(n.Color))
		}
	}

	return doc, nil
}

// ComputeMetadata counts nodes, edges, node types and colors.
func ComputeMetadata(g *Graph) Metadata {
	m := Metadata{
		TotalNodes:        len(g.Nodes),
		TotalEdges:        len(g.Edges),
		NodeTypes:         make(map[string]int),
		ColorDistribution: make(map[string]int),
	}
	for _, n := range g.Nodes {
		m.NodeTypes[n.Type]++
		m.ColorDistribution[string(n.Color)]++
	}
	return m
}
