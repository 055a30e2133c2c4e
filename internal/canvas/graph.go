// Package canvas extracts normalized graphs from canvas documents and derives
// the text the indexer embeds for them: per-node contextual text, a bounded
// summary, and the contents of referenced files.
package canvas

import "strings"

// Node types with special handling.
const (
	NodeTypeText = "text"
	NodeTypeFile = "file"
)

// Node is a normalized canvas node.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	File  string `json:"file,omitempty"`
	Color Color  `json:"color"`

	hasText bool
	hasFile bool
}

// HasText reports whether the source node carried a text attribute.
func (n Node) HasText() bool { return n.hasText }

// HasFile reports whether the source node carried a file attribute.
func (n Node) HasFile() bool { return n.hasFile }

// Edge is a normalized canvas edge.
type Edge struct {
	ID       string `json:"id"`
	FromNode string `json:"fromNode"`
	ToNode   string `json:"toNode"`
	Label    string `json:"label,omitempty"`
}

// Graph is the node/edge structure of one canvas document.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	byID map[string]int
}

// NewGraph builds a graph and its id index. The last node wins on duplicate ids.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	g := &Graph{Nodes: nodes, Edges: edges, byID: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		g.byID[n.ID] = i
	}
	return g
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	if g.byID == nil {
		for i := len(g.Nodes) - 1; i >= 0; i-- {
			if g.Nodes[i].ID == id {
				return g.Nodes[i], true
			}
		}
		return Node{}, false
	}
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// DanglingEdges returns edges whose endpoints do not resolve to a node.
func (g *Graph) DanglingEdges() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		_, fromOK := g.Node(e.FromNode)
		_, toOK := g.Node(e.ToNode)
		if !fromOK || !toOK {
			out = append(out, e)
		}
	}
	return out
}

// TextNodes returns text nodes with non-empty text, in document order.
func (g *Graph) TextNodes() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == NodeTypeText && n.Text != "" {
			out = append(out, n)
		}
	}
	return out
}

// FileNodes returns nodes of type "file" that carry a file attribute.
func FileNodes(g *Graph) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == NodeTypeFile && n.hasFile {
			out = append(out, n)
		}
	}
	return out
}

// ContextualText renders "Node Type: <meaning> | Content: <text> | File Reference: <file>"
// for a node, omitting absent parts. Unknown ids yield "".
func ContextualText(nodeID string, g *Graph) string {
	n, ok := g.Node(nodeID)
	if !ok {
		return ""
	}

	parts := []string{"Node Type: " + n.Color.Meaning()}
	if n.hasText {
		parts = append(parts, "Content: "+n.Text)
	}
	if n.hasFile {
		parts = append(parts, "File Reference: "+n.File)
	}
	return strings.Join(parts, " | ")
}
