package metrics

import (
	"gonum.org/v1/gonum/graph/network"
)

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// DampingFactor (d) is the probability of following an edge vs. teleporting.
	// Standard value: 0.85. Range: [0, 1)
	DampingFactor float64

	// Tolerance stops the power iteration once the Euclidean change between
	// steps falls below it. Default: 1e-6.
	Tolerance float64
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		Tolerance:     1e-6,
	}
}

// ComputePageRank calculates PageRank scores for every concept. Scores sum
// to 1; nodes without outgoing edges spread their score evenly over every
// node.
//
// Edge weights are ignored: fuzzy weights may be negative, which has no
// meaning as a transition probability. Out-of-range damping factors and
// non-positive tolerances fall back to the defaults, since the iteration
// would not terminate with them.
func ComputePageRank(g *Graph, config PageRankConfig) map[string]float64 {
	scores := make(map[string]float64, len(g.Nodes))
	if len(g.Nodes) == 0 {
		return scores
	}

	def := DefaultPageRankConfig()
	d := config.DampingFactor
	if !(d >= 0 && d < 1) {
		d = def.DampingFactor
	}
	tol := config.Tolerance
	if !(tol > 0) {
		tol = def.Tolerance
	}

	// simple.DirectedGraph is not a graph.WeightedDirected, so gonum runs the
	// unweighted variant.
	for id, r := range network.PageRank(g.directed, d, tol) {
		scores[g.Nodes[id]] = r
	}
	return scores
}
