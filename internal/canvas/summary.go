package canvas

import (
	"fmt"
	"strings"
)

// SummaryNodeLimit bounds how many text nodes a summary lists.
const SummaryNodeLimit = 10

// Summary renders a one-line description of the canvas: path, counts,
// color distribution (in order of first appearance) and the first
// SummaryNodeLimit text nodes.
func Summary(doc *Document) string {
	parts := []string{
		"Canvas Documentation: " + doc.Path,
		fmt.Sprintf("Total nodes: %d, Total connections: %d", doc.Metadata.TotalNodes, doc.Metadata.TotalEdges),
	}

	var order []Color
	seen := make(map[Color]bool)
	for _, n := range doc.Nodes {
		if !seen[n.Color] {
			seen[n.Color] = true
			order = append(order, n.Color)
		}
	}
	for _, c := range order {
		parts = append(parts, fmt.Sprintf("%s: %d items", c.Meaning(), doc.Metadata.ColorDistribution[string(c)]))
	}

	textNodes := doc.TextNodes()
	if len(textNodes) > 0 {
		parts = append(parts, "Key components:")
		if len(textNodes) > SummaryNodeLimit {
			textNodes = textNodes[:SummaryNodeLimit]
		}
		for _, n := range textNodes {
			parts = append(parts, fmt.Sprintf("- %s (%s)", n.Text, n.Color.Meaning()))
		}
	}

	return strings.Join(parts, " | ")
}
