// Package mapfile imports cognitive maps drawn in a Cytoscape-style graph
// editor and converts them into weight and initial-activation tables.
//
// Three JSON layouts are recognised:
//
//	{"elements": {"nodes": [...], "edges": [...]}}
//	{"nodes": [...], "edges": [...]}
//	[{"group": "nodes", "data": {...}}, ...]
//
// Node data carries id, label and tfn; edge data carries source, target and
// tfn. A missing tfn defaults to DefaultTFN.
package mapfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/gfcm/internal/table"
)

// DefaultTFN is used for nodes and edges without a tfn field.
const DefaultTFN = "0.0,0.0,0.0"

// ErrUnrecognised is returned when the JSON holds no recognisable elements.
var ErrUnrecognised = errors.New("could not recognise graph JSON structure")

// Group is the element group.
type Group string

const (
	GroupNodes Group = "nodes"
	GroupEdges Group = "edges"
)

// Element is one normalised graph element.
type Element struct {
	Group Group          `json:"group"`
	Data  map[string]any `json:"data"`
}

// Node is a concept of the drawn map.
type Node struct {
	ID    string
	Label string
	TFN   string
}

// Edge is a weighted connection of the drawn map.
type Edge struct {
	Source string
	Target string
	TFN    string
}

// Normalise decodes raw JSON into a flat element list.
func Normalise(raw []byte) ([]Element, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode graph JSON: %w", err)
	}

	var out []Element
	switch v := doc.(type) {
	case map[string]any:
		if elems, ok := v["elements"].(map[string]any); ok {
			out = append(out, groupElements(GroupNodes, elems["nodes"])...)
			out = append(out, groupElements(GroupEdges, elems["edges"])...)
		} else if _, hasNodes := v["nodes"]; hasNodes {
			if _, hasEdges := v["edges"]; hasEdges {
				out = append(out, groupElements(GroupNodes, v["nodes"])...)
				out = append(out, groupElements(GroupEdges, v["edges"])...)
			}
		}
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			group, _ := m["group"].(string)
			data, _ := m["data"].(map[string]any)
			if data == nil {
				data = map[string]any{}
			}
			out = append(out, Element{Group: Group(group), Data: data})
		}
	}

	if len(out) == 0 {
		return nil, ErrUnrecognised
	}
	return out, nil
}

// groupElements unwraps {"data": {...}} entries; bare objects are used as data.
func groupElements(group Group, raw any) []Element {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Element, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		data := m
		if d, ok := m["data"].(map[string]any); ok {
			data = d
		}
		out = append(out, Element{Group: group, Data: data})
	}
	return out
}

// Split separates elements into nodes and edges, applying field defaults.
// Elements of any other group are dropped.
func Split(elements []Element) ([]Node, []Edge) {
	var nodes []Node
	var edges []Edge
	for _, el := range elements {
		switch el.Group {
		case GroupNodes:
			id := stringify(el.Data["id"], "")
			nodes = append(nodes, Node{
				ID:    id,
				Label: stringify(el.Data["label"], id),
				TFN:   stringify(el.Data["tfn"], DefaultTFN),
			})
		case GroupEdges:
			edges = append(edges, Edge{
				Source: stringify(el.Data["source"], ""),
				Target: stringify(el.Data["target"], ""),
				TFN:    stringify(el.Data["tfn"], DefaultTFN),
			})
		}
	}
	return nodes, edges
}

// ToTables builds the weight table (rows are edge sources, columns edge
// targets, both labelled by node label) and the single-row initial table.
// Cells without an edge hold "[0.0,0.0,0.0]". Edges referring to unknown
// node ids are skipped.
func ToTables(elements []Element) (weights, initial table.Table, err error) {
	nodes, edges := Split(elements)
	if len(nodes) == 0 {
		return table.Table{}, table.Table{}, fmt.Errorf("%w: no nodes", ErrUnrecognised)
	}

	labels := make([]string, len(nodes))
	tfns := make([]string, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
		tfns[i] = "[" + n.TFN + "]"
		index[n.ID] = i
	}

	cells := make([][]string, len(nodes))
	for i := range cells {
		cells[i] = make([]string, len(nodes))
		for j := range cells[i] {
			cells[i][j] = "[" + DefaultTFN + "]"
		}
	}
	for _, e := range edges {
		i, okSrc := index[e.Source]
		j, okTgt := index[e.Target]
		if !okSrc || !okTgt {
			continue
		}
		cells[i][j] = "[" + e.TFN + "]"
	}

	weights = table.Table{
		RowLabels: labels,
		ColLabels: append([]string(nil), labels...),
		Cells:     cells,
	}
	initial = table.Table{
		RowLabels: []string{""},
		ColLabels: append([]string(nil), labels...),
		Cells:     [][]string{tfns},
	}
	return weights, initial, nil
}

// Parse is Normalise followed by ToTables.
func Parse(raw []byte) (weights, initial table.Table, err error) {
	elements, err := Normalise(raw)
	if err != nil {
		return table.Table{}, table.Table{}, err
	}
	return ToTables(elements)
}

// stringify renders a JSON value as cell text. Arrays of numbers become
// comma-separated lists so that [0.1, 0.2, 0.3] and "0.1,0.2,0.3" are equivalent.
func stringify(v any, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = stringify(item, "")
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
