package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

// chain builds A -> B -> C.
func chain() *Graph {
	return NewGraph([]string{"A", "B", "C"}, []Edge{
		{Source: "A", Target: "B", Weight: 1},
		{Source: "B", Target: "C", Weight: 1},
	})
}

func TestBuildGraph_NonZeroMidEdges(t *testing.T) {
	concepts := []string{"A", "B", "C"}
	cells := [][]fuzzy.Cell{
		{fuzzy.TextCell("ignored"), fuzzy.TextCell("0.1,0.5,0.9"), fuzzy.TextCell("0")},
		{fuzzy.TextCell("-1,0,1"), fuzzy.TextCell(""), fuzzy.TextCell("-0.6,-0.4,-0.2")},
		{fuzzy.TextCell("0"), fuzzy.TextCell("0"), fuzzy.TextCell("x")},
	}
	w, err := gfcm.BuildWeights(concepts, cells)
	if err != nil {
		t.Fatalf("BuildWeights: %v", err)
	}

	g := BuildGraph(w)
	if len(g.Edges) != 2 {
		t.Fatalf("edges = %+v, want 2", g.Edges)
	}
	if e := g.Edges[0]; e.Source != "A" || e.Target != "B" || e.Weight != 0.5 {
		t.Errorf("edge 0 = %+v", e)
	}
	if e := g.Edges[1]; e.Source != "B" || e.Target != "C" || e.Weight != -0.4 {
		t.Errorf("edge 1 = %+v", e)
	}
	for _, e := range g.Edges {
		if e.Source == e.Target {
			t.Errorf("self-loop %+v", e)
		}
	}
}

func TestNewGraph_IgnoresUnknownNodes(t *testing.T) {
	g := NewGraph([]string{"A"}, []Edge{{Source: "A", Target: "ghost"}})
	if len(g.Edges) != 0 {
		t.Errorf("expected unknown edge dropped, got %+v", g.Edges)
	}
}

func TestCompute_EmptyGraph(t *testing.T) {
	r := Compute(NewGraph(nil, nil), DefaultPageRankConfig())
	if len(r.Concepts) != 0 || r.Density != 0 || r.AverageDegree != 0 {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestCompute_SingleNode(t *testing.T) {
	r := Compute(NewGraph([]string{"A"}, nil), DefaultPageRankConfig())
	if r.Density != 0 {
		t.Errorf("density = %v, want 0", r.Density)
	}
	a := r.Concepts[0]
	if a.DegreeCentrality != 1 {
		t.Errorf("degree centrality = %v, want 1", a.DegreeCentrality)
	}
	if math.Abs(a.PageRank-1) > 1e-9 {
		t.Errorf("pagerank = %v, want 1", a.PageRank)
	}
	if a.Eigenvector == nil || !approx(*a.Eigenvector, 1) {
		t.Errorf("eigenvector = %v, want 1", a.Eigenvector)
	}
}

func TestCompute_Chain(t *testing.T) {
	r := Compute(chain(), DefaultPageRankConfig())

	if !approx(r.Density, 1.0/3.0) {
		t.Errorf("density = %v, want 1/3", r.Density)
	}
	if !approx(r.AverageDegree, 4.0/3.0) {
		t.Errorf("average degree = %v, want 4/3", r.AverageDegree)
	}

	tests := []struct {
		concept     string
		degree      float64
		in, out     int
		betweenness float64
		closeness   float64
	}{
		{"A", 0.5, 0, 1, 0, 0},
		{"B", 1.0, 1, 1, 0.5, 0.5},
		{"C", 0.5, 1, 0, 0, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.concept, func(t *testing.T) {
			m, ok := r.Lookup(tt.concept)
			if !ok {
				t.Fatalf("concept %s missing", tt.concept)
			}
			if !approx(m.DegreeCentrality, tt.degree) {
				t.Errorf("degree = %v, want %v", m.DegreeCentrality, tt.degree)
			}
			if m.InDegree != tt.in || m.OutDegree != tt.out {
				t.Errorf("in/out = %d/%d, want %d/%d", m.InDegree, m.OutDegree, tt.in, tt.out)
			}
			if !approx(m.Betweenness, tt.betweenness) {
				t.Errorf("betweenness = %v, want %v", m.Betweenness, tt.betweenness)
			}
			if !approx(m.Closeness, tt.closeness) {
				t.Errorf("closeness = %v, want %v", m.Closeness, tt.closeness)
			}
		})
	}
}

func TestBetweenness_SplitsAcrossEqualPaths(t *testing.T) {
	// A reaches D through both B and C.
	g := NewGraph([]string{"A", "B", "C", "D"}, []Edge{
		{Source: "A", Target: "B"},
		{Source: "A", Target: "C"},
		{Source: "B", Target: "D"},
		{Source: "C", Target: "D"},
	})
	b := Betweenness(g)
	want := 0.5 / 6.0
	if !approx(b[1], want) || !approx(b[2], want) {
		t.Errorf("betweenness B=%v C=%v, want %v each", b[1], b[2], want)
	}
	if b[0] != 0 || b[3] != 0 {
		t.Errorf("endpoints should score 0, got A=%v D=%v", b[0], b[3])
	}
}

func sum(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func TestComputePageRank_Ring(t *testing.T) {
	g := NewGraph([]string{"A", "B", "C"}, []Edge{
		{Source: "A", Target: "B"},
		{Source: "B", Target: "C"},
		{Source: "C", Target: "A"},
	})
	scores := ComputePageRank(g, DefaultPageRankConfig())
	if len(scores) != 3 {
		t.Fatalf("scores = %v", scores)
	}
	for name, s := range scores {
		if math.Abs(s-1.0/3.0) > 1e-4 {
			t.Errorf("ring node %s = %v, want 1/3", name, s)
		}
	}
}

func TestComputePageRank_SumsToOne(t *testing.T) {
	g := NewGraph([]string{"hub", "l1", "l2", "l3"}, []Edge{
		{Source: "l1", Target: "hub"},
		{Source: "l2", Target: "hub"},
		{Source: "l3", Target: "hub"},
	})
	scores := ComputePageRank(g, DefaultPageRankConfig())

	if math.Abs(sum(scores)-1) > 1e-6 {
		t.Errorf("scores sum to %v, want 1", sum(scores))
	}
	for _, leaf := range []string{"l1", "l2", "l3"} {
		if scores[leaf] >= scores["hub"] {
			t.Errorf("leaf %s (%v) should rank below hub (%v)", leaf, scores[leaf], scores["hub"])
		}
	}
}

func TestComputePageRank_NegativeWeightsIgnored(t *testing.T) {
	pos := NewGraph([]string{"A", "B"}, []Edge{{Source: "A", Target: "B", Weight: 0.7}})
	neg := NewGraph([]string{"A", "B"}, []Edge{{Source: "A", Target: "B", Weight: -0.7}})

	p := ComputePageRank(pos, DefaultPageRankConfig())
	n := ComputePageRank(neg, DefaultPageRankConfig())
	for _, k := range []string{"A", "B"} {
		if math.Abs(p[k]-n[k]) > 1e-4 {
			t.Errorf("%s: positive %v != negative %v", k, p[k], n[k])
		}
	}
}

func TestComputePageRank_InvalidDampingFallsBack(t *testing.T) {
	g := chain()
	for _, d := range []float64{1, -0.5, math.NaN()} {
		scores := ComputePageRank(g, PageRankConfig{DampingFactor: d})
		if math.Abs(sum(scores)-1) > 1e-6 {
			t.Errorf("damping %v: scores sum to %v, want 1", d, sum(scores))
		}
	}
}

func TestEigenvectorCentrality(t *testing.T) {
	t.Run("two-cycle", func(t *testing.T) {
		g := NewGraph([]string{"A", "B"}, []Edge{
			{Source: "A", Target: "B"},
			{Source: "B", Target: "A"},
		})
		x, err := EigenvectorCentrality(g)
		if err != nil {
			t.Fatalf("EigenvectorCentrality: %v", err)
		}
		for i, v := range x {
			if math.Abs(v-math.Sqrt2/2) > 1e-9 {
				t.Errorf("x[%d] = %v, want 1/sqrt(2)", i, v)
			}
		}
	})

	t.Run("cycle with a spoke", func(t *testing.T) {
		// A <-> B, and C feeds A: A collects the most in-edge weight.
		g := NewGraph([]string{"A", "B", "C"}, []Edge{
			{Source: "A", Target: "B"},
			{Source: "B", Target: "A"},
			{Source: "C", Target: "A"},
		})
		x, err := EigenvectorCentrality(g)
		if err != nil {
			t.Fatalf("EigenvectorCentrality: %v", err)
		}
		if !(x[0] > x[1] && x[1] > x[2]) {
			t.Errorf("x = %v, want A > B > C", x)
		}
		norm := math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
		if math.Abs(norm-1) > 1e-9 {
			t.Errorf("norm = %v, want 1", norm)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		g := NewGraph([]string{"A", "B", "C"}, []Edge{{Source: "A", Target: "B"}})
		if _, err := EigenvectorCentrality(g); !errors.Is(err, ErrNotConnected) {
			t.Errorf("err = %v, want ErrNotConnected", err)
		}
	})

	t.Run("acyclic chain", func(t *testing.T) {
		if _, err := EigenvectorCentrality(chain()); !errors.Is(err, ErrNoConvergence) {
			t.Errorf("err = %v, want ErrNoConvergence", err)
		}
	})
}

func TestCompute_EigenvectorSkipped(t *testing.T) {
	r := Compute(NewGraph([]string{"A", "B"}, nil), DefaultPageRankConfig())
	if r.EigenvectorSkipped != ErrNotConnected.Error() {
		t.Errorf("EigenvectorSkipped = %q", r.EigenvectorSkipped)
	}
	for _, c := range r.Concepts {
		if c.Eigenvector != nil {
			t.Errorf("%s eigenvector = %v, want nil", c.Concept, *c.Eigenvector)
		}
	}

	ring := NewGraph([]string{"A", "B"}, []Edge{{Source: "A", Target: "B"}, {Source: "B", Target: "A"}})
	r = Compute(ring, DefaultPageRankConfig())
	if r.EigenvectorSkipped != "" || r.Concepts[0].Eigenvector == nil {
		t.Errorf("ring report = %+v", r)
	}
}

func TestNewGraph_SkipsSelfLoopsAndRepeats(t *testing.T) {
	g := NewGraph([]string{"A", "B"}, []Edge{
		{Source: "A", Target: "A"},
		{Source: "A", Target: "B"},
		{Source: "A", Target: "B"},
	})
	if len(g.Edges) != 1 || g.OutDegree(0) != 1 || g.InDegree(1) != 1 {
		t.Errorf("edges = %+v", g.Edges)
	}
}

func TestReport_Lookup(t *testing.T) {
	r := Compute(chain(), DefaultPageRankConfig())
	if _, ok := r.Lookup("missing"); ok {
		t.Error("expected missing concept not found")
	}
	if b, ok := r.Lookup("B"); !ok || b.InDegree != 1 {
		t.Errorf("Lookup(B) = %+v, %v", b, ok)
	}
}
