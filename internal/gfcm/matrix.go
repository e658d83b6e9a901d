package gfcm

import (
	"fmt"

	"github.com/nvandessel/gfcm/internal/fuzzy"
)

// WeightMatrix is a dense n×n matrix of fuzzy weights indexed by concept
// position, with rows and columns in the same concept order. Propagation
// computes concept i from row i. The diagonal is always fuzzy.Identity.
//
// A WeightMatrix is read-only once built and may be shared between
// concurrent runs.
type WeightMatrix struct {
	concepts []string
	index    map[string]int
	cells    []fuzzy.TFN
}

// State is the fuzzy activation of every concept at one iteration, in
// concept order.
type State []fuzzy.TFN

// BuildWeights parses the raw weight cells into a WeightMatrix.
// cells[i][j] is the raw weight for row concept i and column concept j.
// Diagonal cells are not parsed. The first malformed cell aborts the build;
// the returned error wraps the *fuzzy.ParseError.
func BuildWeights(concepts []string, cells [][]fuzzy.Cell) (*WeightMatrix, error) {
	n := len(concepts)
	if len(cells) != n {
		return nil, fmt.Errorf("weight matrix has %d rows for %d concepts", len(cells), n)
	}

	w := &WeightMatrix{
		concepts: append([]string(nil), concepts...),
		index:    make(map[string]int, n),
		cells:    make([]fuzzy.TFN, n*n),
	}
	for i, name := range concepts {
		w.index[name] = i
	}

	for i, row := range cells {
		if len(row) != n {
			return nil, fmt.Errorf("weight row %q has %d cells for %d concepts", concepts[i], len(row), n)
		}
		for j, cell := range row {
			if i == j {
				w.cells[i*n+j] = fuzzy.Identity
				continue
			}
			t, err := fuzzy.ParseInterval(cell)
			if err != nil {
				return nil, fmt.Errorf("weight %s -> %s: %w", concepts[i], concepts[j], err)
			}
			w.cells[i*n+j] = t
		}
	}

	return w, nil
}

// BuildState parses raw initial-activation cells into the iteration-0 state.
func BuildState(concepts []string, cells []fuzzy.Cell) (State, error) {
	if len(cells) != len(concepts) {
		return nil, fmt.Errorf("initial state has %d cells for %d concepts", len(cells), len(concepts))
	}

	state := make(State, len(cells))
	for i, cell := range cells {
		t, err := fuzzy.ParseInterval(cell)
		if err != nil {
			return nil, fmt.Errorf("initial activation %s: %w", concepts[i], err)
		}
		state[i] = t
	}
	return state, nil
}

// Len returns the number of concepts.
func (w *WeightMatrix) Len() int { return len(w.concepts) }

// Concepts returns a copy of the concept order used for every index.
func (w *WeightMatrix) Concepts() []string {
	return append([]string(nil), w.concepts...)
}

// Index returns the position of the named concept.
func (w *WeightMatrix) Index(name string) (int, bool) {
	i, ok := w.index[name]
	return i, ok
}

// At returns the weight at row i, column j.
func (w *WeightMatrix) At(i, j int) fuzzy.TFN {
	return w.cells[i*len(w.concepts)+j]
}

// Crisp returns the defuzzified state.
func (s State) Crisp() Vector {
	return fuzzy.DefuzzifyAll(s)
}
