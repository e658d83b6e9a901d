package gfcm

import (
	"encoding/json"
	"math"

	"github.com/nvandessel/gfcm/internal/fuzzy"
)

// Trace is the full history of one simulation run. Fuzzy and Crisp both have
// Iterations+1 entries; entry t holds every concept's value at iteration t,
// positioned by Concepts. A Trace is never modified after Run returns it.
type Trace struct {
	Concepts   []string    `json:"concepts"`
	Fuzzy      []State     `json:"fuzzy"`
	Crisp      []Vector    `json:"crisp"`
	Lambda     float64     `json:"lambda"`
	Iterations int         `json:"iterations"`
	Clamped    []string    `json:"clamped,omitempty"`
}

// Final returns the state at the last iteration.
func (tr *Trace) Final() State {
	return tr.Fuzzy[len(tr.Fuzzy)-1]
}

// Series returns the fuzzy and crisp trajectory of one concept across all
// iterations. ok is false when the concept is not part of the run.
func (tr *Trace) Series(concept string) (fuzzySeries []fuzzy.TFN, crispSeries []float64, ok bool) {
	idx := -1
	for i, name := range tr.Concepts {
		if name == concept {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, false
	}

	fuzzySeries = make([]fuzzy.TFN, len(tr.Fuzzy))
	crispSeries = make([]float64, len(tr.Crisp))
	for t := range tr.Fuzzy {
		fuzzySeries[t] = tr.Fuzzy[t][idx]
		crispSeries[t] = tr.Crisp[t][idx]
	}
	return fuzzySeries, crispSeries, true
}

// Converged returns the first iteration t >= 1 at which no centroid moved by
// tol or more since iteration t-1. A NaN centroid never counts as settled. It
// only inspects the trace; the engine itself always runs every iteration.
func (tr *Trace) Converged(tol float64) (int, bool) {
	for t := 1; t < len(tr.Crisp); t++ {
		settled := true
		for i := range tr.Crisp[t] {
			if d := math.Abs(tr.Crisp[t][i] - tr.Crisp[t-1][i]); !(d < tol) {
				settled = false
				break
			}
		}
		if settled {
			return t, true
		}
	}
	return 0, false
}

// Vector is one crisp value per concept. Its JSON form keeps NaN and the
// infinities (see fuzzy.JSONFloat).
type Vector []float64

// MarshalJSON implements json.Marshaler.
func (v Vector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make([]fuzzy.JSONFloat, len(v))
	for i, x := range v {
		out[i] = fuzzy.JSONFloat(x)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var in []fuzzy.JSONFloat
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*v = nil
		return nil
	}
	out := make(Vector, len(in))
	for i, x := range in {
		out[i] = float64(x)
	}
	*v = out
	return nil
}
