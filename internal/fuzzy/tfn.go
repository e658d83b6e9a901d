// Package fuzzy implements triangular fuzzy numbers (TFNs) and the arithmetic
// the map simulation needs: multiplication, component-wise summation and
// centroid defuzzification.
package fuzzy

import (
	"sort"
	"strconv"
)

// TFN is a triangular fuzzy number (Lo, Mid, Hi).
// Lo is the pessimistic bound, Mid the most plausible value and Hi the
// optimistic bound. Lo <= Mid <= Hi is expected but never enforced: inverted
// triangles propagate through every operation unchanged.
type TFN struct {
	Lo  float64 `json:"lo"`
	Mid float64 `json:"mid"`
	Hi  float64 `json:"hi"`
}

var (
	// Identity is the multiplicative identity, used for self-weights.
	Identity = TFN{Lo: 1, Mid: 1, Hi: 1}

	// Zero is the additive identity.
	Zero = TFN{}
)

// Crisp embeds a crisp scalar as the degenerate triangle (v, v, v).
func Crisp(v float64) TFN {
	return TFN{Lo: v, Mid: v, Hi: v}
}

// IsZero reports whether all three components are zero.
func (t TFN) IsZero() bool {
	return t.Lo == 0 && t.Mid == 0 && t.Hi == 0
}

// Map applies f to each component.
func (t TFN) Map(f func(float64) float64) TFN {
	return TFN{Lo: f(t.Lo), Mid: f(t.Mid), Hi: f(t.Hi)}
}

// String renders the triangle as "[lo, mid, hi]" using the shortest
// representation that parses back to the same float64 values.
func (t TFN) String() string {
	return "[" + formatFloat(t.Lo) + ", " + formatFloat(t.Mid) + ", " + formatFloat(t.Hi) + "]"
}

// Add sums two triangles component-wise.
func Add(a, b TFN) TFN {
	return TFN{Lo: a.Lo + b.Lo, Mid: a.Mid + b.Mid, Hi: a.Hi + b.Hi}
}

// Multiply computes the nine pairwise products of the components of a and b.
// Lo is their minimum and Hi their maximum. Mid is the median of the nine
// products, not a.Mid*b.Mid.
func Multiply(a, b TFN) TFN {
	av := [3]float64{a.Lo, a.Mid, a.Hi}
	bv := [3]float64{b.Lo, b.Mid, b.Hi}

	var prods [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			prods[i*3+j] = av[i] * bv[j]
		}
	}
	sort.Float64s(prods[:])

	return TFN{Lo: prods[0], Mid: prods[4], Hi: prods[8]}
}

// Defuzzify returns the unweighted centroid (Lo + Mid + Hi) / 3.
func Defuzzify(t TFN) float64 {
	return (t.Lo + t.Mid + t.Hi) / 3.0
}

// DefuzzifyAll defuzzifies every triangle in ts, preserving order.
func DefuzzifyAll(ts []TFN) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = Defuzzify(t)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
