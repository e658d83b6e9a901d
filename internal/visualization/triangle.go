package visualization

import (
	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
)

// Point3 is a point of the triangle evolution plot: X is the activation value,
// Y the iteration (1-based) and Z the membership degree. X is NaN or
// infinite when the activation is.
type Point3 struct {
	X fuzzy.JSONFloat `json:"x"`
	Y float64         `json:"y"`
	Z float64         `json:"z"`
}

// Triangle is the membership function of one concept at one iteration.
type Triangle struct {
	Iteration int       `json:"iteration"`
	Vertices  [3]Point3 `json:"vertices"`
	Centroid  Point3    `json:"centroid"`
}

// TriangleSeries is the evolution of one concept across a run.
type TriangleSeries struct {
	Concept   string     `json:"concept"`
	Triangles []Triangle `json:"triangles"`
}

// TriangleEvolution lays out each fuzzy state of the selected concepts as a
// triangle (lo,t+1,0) (mid,t+1,1) (hi,t+1,0) with its centroid at height 1/3.
// An empty selection means every concept. Unknown concepts are skipped.
func TriangleEvolution(tr *gfcm.Trace, concepts []string) []TriangleSeries {
	if len(concepts) == 0 {
		concepts = tr.Concepts
	}

	var out []TriangleSeries
	for _, name := range concepts {
		series, _, ok := tr.Series(name)
		if !ok {
			continue
		}
		ts := TriangleSeries{Concept: name, Triangles: make([]Triangle, len(series))}
		for t, v := range series {
			y := float64(t + 1)
			ts.Triangles[t] = Triangle{
				Iteration: t,
				Vertices: [3]Point3{
					{X: fuzzy.JSONFloat(v.Lo), Y: y, Z: 0},
					{X: fuzzy.JSONFloat(v.Mid), Y: y, Z: 1},
					{X: fuzzy.JSONFloat(v.Hi), Y: y, Z: 0},
				},
				Centroid: Point3{X: fuzzy.JSONFloat(fuzzy.Defuzzify(v)), Y: y, Z: 1.0 / 3.0},
			}
		}
		out = append(out, ts)
	}
	return out
}
