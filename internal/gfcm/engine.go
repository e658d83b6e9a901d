// Package gfcm implements the Generalised Fuzzy Cognitive Map simulation
// engine. Fuzzy activation propagates through a matrix of triangular fuzzy
// weights, is squashed component-wise by tanh(λx), and selected concepts can
// be clamped to their initial value at every step.
//
// The engine is pure and synchronous: it runs a fixed number of steps and
// returns the full trajectory. Whether the map stabilised is left to the
// caller (see Trace.Converged).
package gfcm

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/gfcm/internal/fuzzy"
)

// ErrNegativeIterations is returned when Config.Iterations is below zero.
var ErrNegativeIterations = errors.New("iterations must be non-negative")

// Config holds the simulation parameters.
type Config struct {
	// Lambda is the tanh steepness. Not validated: values <= 0 dampen or
	// invert activation. Default: 1.0.
	Lambda float64

	// Iterations is the number of propagation steps (N). Default: 15.
	Iterations int

	// Clamp names concepts pinned to their iteration-0 value at every step.
	// Names that are not concepts of the map are ignored.
	Clamp []string
}

// DefaultConfig returns the default simulation configuration.
func DefaultConfig() Config {
	return Config{
		Lambda:     1.0,
		Iterations: 15,
	}
}

// Input is the raw tabular input of a run: a square weight table and a
// single initial-activation row, both in Concepts order.
type Input struct {
	Concepts []string
	Weights  [][]fuzzy.Cell
	Initial  []fuzzy.Cell
}

// Engine runs simulations with a fixed configuration.
// The engine is stateless: every call to Run owns its own state sequence.
type Engine struct {
	config Config
}

// NewEngine creates a simulation engine.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Simulate builds the weight matrix and initial state from in and runs the
// simulation. Construction is atomic: on any parse error no trace is returned.
func Simulate(in Input, config Config) (*Trace, error) {
	w, err := BuildWeights(in.Concepts, in.Weights)
	if err != nil {
		return nil, err
	}
	initial, err := BuildState(in.Concepts, in.Initial)
	if err != nil {
		return nil, err
	}
	return NewEngine(config).Run(w, initial)
}

// Run propagates initial through w for config.Iterations steps and returns
// the N+1 fuzzy states and their centroids.
func (e *Engine) Run(w *WeightMatrix, initial State) (*Trace, error) {
	if e.config.Iterations < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrNegativeIterations, e.config.Iterations)
	}
	if len(initial) != w.Len() {
		return nil, fmt.Errorf("initial state has %d values for %d concepts", len(initial), w.Len())
	}

	clamped := e.clampMask(w)
	n := e.config.Iterations

	fuzzyHist := make([]State, 0, n+1)
	crispHist := make([]Vector, 0, n+1)

	state := append(State(nil), initial...)
	for t := 0; ; t++ {
		fuzzyHist = append(fuzzyHist, state)
		crispHist = append(crispHist, state.Crisp())
		if t == n {
			break
		}
		state = Step(w, state, initial, e.config.Lambda, clamped)
	}

	return &Trace{
		Concepts:   w.Concepts(),
		Fuzzy:      fuzzyHist,
		Crisp:      crispHist,
		Lambda:     e.config.Lambda,
		Iterations: n,
		Clamped:    clampedNames(w, clamped),
	}, nil
}

// Step computes the state following prev. For each concept i the weighted
// sum Σ_j W[i][j]·prev[j] is accumulated from zero in index order and squashed
// by tanh(lambda·x) per component. Concepts with clamped[i] set take
// initial[i] instead. prev is never modified.
func Step(w *WeightMatrix, prev, initial State, lambda float64, clamped []bool) State {
	n := w.Len()
	next := make(State, n)
	for i := 0; i < n; i++ {
		if clamped != nil && clamped[i] {
			next[i] = initial[i]
			continue
		}

		sum := fuzzy.Zero
		for j := 0; j < n; j++ {
			sum = fuzzy.Add(sum, fuzzy.Multiply(w.At(i, j), prev[j]))
		}
		next[i] = sum.Map(func(x float64) float64 {
			return math.Tanh(lambda * x)
		})
	}
	return next
}

// clampMask resolves the configured clamp names against the matrix concepts.
func (e *Engine) clampMask(w *WeightMatrix) []bool {
	if len(e.config.Clamp) == 0 {
		return nil
	}
	mask := make([]bool, w.Len())
	for _, name := range e.config.Clamp {
		if i, ok := w.Index(name); ok {
			mask[i] = true
		}
	}
	return mask
}

func clampedNames(w *WeightMatrix, mask []bool) []string {
	var names []string
	for i, on := range mask {
		if on {
			names = append(names, w.concepts[i])
		}
	}
	return names
}
