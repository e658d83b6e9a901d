package metrics

// ConceptMetrics holds the indices computed for one concept.
type ConceptMetrics struct {
	Concept          string  `json:"concept"`
	DegreeCentrality float64 `json:"degree_centrality"`
	InDegree         int     `json:"in_degree"`
	OutDegree        int     `json:"out_degree"`
	Betweenness      float64 `json:"betweenness"`
	Closeness        float64 `json:"closeness"`
	// Eigenvector is nil when the report's EigenvectorSkipped is set.
	Eigenvector *float64 `json:"eigenvector"`
	PageRank    float64  `json:"pagerank"`
}

// Report is the full metric set of a concept graph.
type Report struct {
	Density       float64 `json:"density"`
	AverageDegree float64 `json:"average_degree"`
	Edges         int     `json:"edges"`

	// EigenvectorSkipped says why eigenvector centrality was not computed.
	EigenvectorSkipped string `json:"eigenvector_skipped,omitempty"`

	Concepts []ConceptMetrics `json:"concepts"`
}

// Compute evaluates every per-concept index and the graph-level summary.
// Concepts are reported in graph node order.
func Compute(g *Graph, config PageRankConfig) Report {
	n := len(g.Nodes)
	degree := DegreeCentrality(g)
	between := Betweenness(g)
	closeness := Closeness(g)
	pr := ComputePageRank(g, config)
	eigen, eigenErr := EigenvectorCentrality(g)

	r := Report{
		Edges:    len(g.Edges),
		Concepts: make([]ConceptMetrics, n),
	}
	if eigenErr != nil {
		r.EigenvectorSkipped = eigenErr.Error()
	}
	for i, name := range g.Nodes {
		r.Concepts[i] = ConceptMetrics{
			Concept:          name,
			DegreeCentrality: degree[i],
			InDegree:         g.InDegree(i),
			OutDegree:        g.OutDegree(i),
			Betweenness:      between[i],
			Closeness:        closeness[i],
			PageRank:         pr[name],
		}
		if eigenErr == nil {
			r.Concepts[i].Eigenvector = &eigen[i]
		}
	}

	if n > 1 {
		r.Density = float64(len(g.Edges)) / float64(n*(n-1))
	}
	if n > 0 {
		r.AverageDegree = 2 * float64(len(g.Edges)) / float64(n)
	}
	return r
}

// Lookup returns the metrics for concept, if present.
func (r Report) Lookup(concept string) (ConceptMetrics, bool) {
	for _, c := range r.Concepts {
		if c.Concept == concept {
			return c, true
		}
	}
	return ConceptMetrics{}, false
}
