package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/topo"
)

// Eigenvector centrality power iteration limits.
const (
	eigenMaxIterations = 100
	eigenTolerance     = 1e-6
)

var (
	// ErrNotConnected is returned by EigenvectorCentrality when the graph,
	// read as undirected, has more than one component.
	ErrNotConnected = errors.New("graph not connected")

	// ErrNoConvergence is returned by EigenvectorCentrality when the power
	// iteration does not settle.
	ErrNoConvergence = errors.New("eigenvector centrality did not converge")
)

// DegreeCentrality returns (in + out) / (n - 1) for every node. A graph with
// a single node scores 1.
func DegreeCentrality(g *Graph) []float64 {
	n := len(g.Nodes)
	out := make([]float64, n)
	if n <= 1 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	s := 1.0 / float64(n-1)
	for i := range out {
		out[i] = float64(g.InDegree(i)+g.OutDegree(i)) * s
	}
	return out
}

// Betweenness returns the unweighted directed betweenness centrality of every
// node, normalized by 1/((n-1)(n-2)) when n > 2.
func Betweenness(g *Graph) []float64 {
	n := len(g.Nodes)
	cb := make([]float64, n)
	if n == 0 {
		return cb
	}

	scale := 1.0
	if n > 2 {
		scale = 1.0 / float64((n-1)*(n-2))
	}
	// Only non-zero scores are returned.
	for id, v := range network.Betweenness(g.directed) {
		cb[id] = v * scale
	}
	return cb
}

// Closeness returns the closeness centrality of every node using incoming
// shortest-path distances, scaled by the fraction of the graph that can reach
// the node (Wasserman and Faust). Unreachable nodes score 0.
func Closeness(g *Graph) []float64 {
	n := len(g.Nodes)
	out := make([]float64, n)
	if n < 2 {
		return out
	}

	paths := path.DijkstraAllPaths(g.directed)
	for v := 0; v < n; v++ {
		reached, total := 0, 0.0
		for u := 0; u < n; u++ {
			if u == v {
				continue
			}
			if d := paths.Weight(int64(u), int64(v)); !math.IsInf(d, 1) {
				reached++
				total += d
			}
		}
		if total > 0 {
			c := float64(reached) / total
			c *= float64(reached) / float64(n-1)
			out[v] = c
		}
	}
	return out
}

// EigenvectorCentrality returns the unweighted in-edge eigenvector
// centrality of every node, scaled to unit Euclidean norm. It power-iterates
// x <- (A+I)^T x, which has the same dominant eigenvector as A^T, for at most
// 100 steps and stops once the L1 change falls below n*1e-6.
//
// Graphs that are not weakly connected return ErrNotConnected, and graphs
// whose iteration does not settle (a chain with no cycle, for one) return
// ErrNoConvergence.
func EigenvectorCentrality(g *Graph) ([]float64, error) {
	n := len(g.Nodes)
	if n == 0 {
		return nil, nil
	}
	if len(topo.ConnectedComponents(graph.Undirect{G: g.directed})) > 1 {
		return nil, ErrNotConnected
	}

	in := make([][]int, n)
	for v := range in {
		in[v] = g.predecessors(v)
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	floats.Scale(1/floats.Norm(x, 2), x)

	next := make([]float64, n)
	for iter := 0; iter < eigenMaxIterations; iter++ {
		copy(next, x)
		for v, preds := range in {
			for _, u := range preds {
				next[v] += x[u]
			}
		}
		floats.Scale(1/floats.Norm(next, 2), next)

		if floats.Distance(next, x, 1) < float64(n)*eigenTolerance {
			return next, nil
		}
		x, next = next, x
	}
	return nil, ErrNoConvergence
}
