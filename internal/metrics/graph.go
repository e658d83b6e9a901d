// Package metrics computes graph-theoretical indices of a cognitive map.
// The map is reduced to a crisp directed graph, held as a gonum
// simple.DirectedGraph, whose edges carry the mid component of each fuzzy
// weight for display. Every index is computed on the unweighted topology.
package metrics

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
)

// Edge is a directed, crisp-weighted connection between two concepts.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`

	// TFN is the fuzzy weight the edge was derived from. Zero for edges
	// built with NewGraph.
	TFN fuzzy.TFN `json:"tfn"`
}

// Graph is the crisp projection of a weight matrix. Node i of the gonum
// graph has ID i and is named Nodes[i].
type Graph struct {
	Nodes []string
	Edges []Edge

	index    map[string]int
	directed *simple.DirectedGraph
}

// BuildGraph derives the concept graph from w. Every ordered pair of distinct
// concepts whose weight has a non-zero mid becomes an edge row -> column
// weighted by that mid; a NaN mid counts as non-zero.
//
// The diagonal is skipped. A table whose raw diagonal holds non-zero cells
// would give self-loops under a plain adjacency reading, and those would count
// toward degree centrality; here the engine owns the diagonal (it is always
// the identity) so it never becomes an edge.
func BuildGraph(w *gfcm.WeightMatrix) *Graph {
	concepts := w.Concepts()
	g := newGraph(concepts)
	for i := range concepts {
		for j := range concepts {
			if i == j {
				continue
			}
			if t := w.At(i, j); t.Mid != 0 {
				g.addEdge(Edge{Source: concepts[i], Target: concepts[j], Weight: t.Mid, TFN: t}, i, j)
			}
		}
	}
	return g
}

// NewGraph builds a graph from explicit nodes and edges. Edges naming unknown
// nodes, self-loops and repeats of an existing edge are ignored.
func NewGraph(nodes []string, edges []Edge) *Graph {
	g := newGraph(nodes)
	for _, e := range edges {
		i, okS := g.index[e.Source]
		j, okT := g.index[e.Target]
		if okS && okT {
			g.addEdge(e, i, j)
		}
	}
	return g
}

func newGraph(nodes []string) *Graph {
	g := &Graph{
		Nodes:    append([]string(nil), nodes...),
		index:    make(map[string]int, len(nodes)),
		directed: simple.NewDirectedGraph(),
	}
	for i, n := range nodes {
		g.index[n] = i
		g.directed.AddNode(simple.Node(i))
	}
	return g
}

// addEdge records e as i -> j. simple.DirectedGraph panics on self edges and
// silently replaces repeated ones, so both are filtered here.
func (g *Graph) addEdge(e Edge, i, j int) {
	if i == j || g.directed.HasEdgeFromTo(int64(i), int64(j)) {
		return
	}
	g.Edges = append(g.Edges, e)
	g.directed.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
}

// Index returns the node position of concept.
func (g *Graph) Index(concept string) (int, bool) {
	i, ok := g.index[concept]
	return i, ok
}

// OutDegree returns the number of edges leaving node i.
func (g *Graph) OutDegree(i int) int { return g.directed.From(int64(i)).Len() }

// InDegree returns the number of edges entering node i.
func (g *Graph) InDegree(i int) int { return g.directed.To(int64(i)).Len() }

// predecessors returns the nodes with an edge into node i.
func (g *Graph) predecessors(i int) []int {
	it := g.directed.To(int64(i))
	out := make([]int, 0, it.Len())
	for it.Next() {
		out = append(out, int(it.Node().ID()))
	}
	return out
}
