// Package visualization renders concept graphs and simulation traces in
// various output formats.
package visualization

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q (use dot or json)", s)
	}
}

// Render dispatches to RenderDOT or RenderJSON.
func Render(format Format, g *metrics.Graph, initial gfcm.State) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(RenderDOT(g, initial)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(RenderJSON(g, initial), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal graph: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// edge colors by sign of the crisp weight.
const (
	colorPositive = "steelblue"
	colorNegative = "tomato"
)

// RenderDOT produces a Graphviz DOT representation of the concept graph.
// initial may be nil or shorter than the node list; missing activations are
// omitted from the labels.
func RenderDOT(g *metrics.Graph, initial gfcm.State) string {
	var b strings.Builder
	b.WriteString("digraph gfcm {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=\"lightyellow\", fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for i, name := range g.Nodes {
		label := truncate(name, 40)
		if i < len(initial) {
			label += "\\nI=" + initial[i].String()
		}
		// label is pre-escaped for the newline, so it is quoted by hand.
		fmt.Fprintf(&b, "  %q [label=\"%s\"];\n", name, strings.ReplaceAll(label, `"`, `\"`))
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		style, color := "solid", colorPositive
		if e.Weight < 0 {
			style, color = "dashed", colorNegative
		}
		fmt.Fprintf(&b, "  %q -> %q [label=%q, style=%s, color=%q];\n",
			e.Source, e.Target, formatWeight(e.Weight), style, color)
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces Cytoscape-compatible graph elements. Node and edge data
// carry a "tfn" string in the same layout the mapfile importer reads back.
func RenderJSON(g *metrics.Graph, initial gfcm.State) map[string]interface{} {
	jsonNodes := make([]map[string]interface{}, 0, len(g.Nodes))
	for i, name := range g.Nodes {
		data := map[string]interface{}{
			"id":    name,
			"label": name,
		}
		if i < len(initial) {
			data["tfn"] = tfnText(initial[i])
		}
		jsonNodes = append(jsonNodes, map[string]interface{}{"data": data})
	}

	jsonEdges := make([]map[string]interface{}, 0, len(g.Edges))
	for _, e := range g.Edges {
		t := e.TFN
		if t.IsZero() {
			t = fuzzy.Crisp(e.Weight)
		}
		jsonEdges = append(jsonEdges, map[string]interface{}{
			"data": map[string]interface{}{
				"source": e.Source,
				"target": e.Target,
				"weight": fuzzy.JSONFloat(e.Weight),
				"tfn":    tfnText(t),
			},
		})
	}

	return map[string]interface{}{
		"elements": map[string]interface{}{
			"nodes": jsonNodes,
			"edges": jsonEdges,
		},
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}
}

// tfnText renders t as "lo, mid, hi" without brackets.
func tfnText(t fuzzy.TFN) string {
	return strings.Trim(t.String(), "[]")
}

func formatWeight(w float64) string {
	return fmt.Sprintf("%.2f", w)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
