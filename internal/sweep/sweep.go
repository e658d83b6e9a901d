// Package sweep runs one simulation per lambda value concurrently.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/gfcm/internal/gfcm"
)

// ErrNoLambdas is returned when the sweep has nothing to run.
var ErrNoLambdas = errors.New("no lambda values to sweep")

// DefaultTolerance is the convergence tolerance used when none is set.
const DefaultTolerance = 1e-6

// Options configures a sweep.
type Options struct {
	// Limit bounds the number of concurrent runs. Zero or negative means one
	// run per lambda at once.
	Limit int

	// Tolerance decides convergence for each result.
	Tolerance float64
}

// Result is the outcome of one run of the sweep.
type Result struct {
	Lambda      float64     `json:"lambda"`
	Trace       *gfcm.Trace `json:"trace"`
	ConvergedAt int         `json:"converged_at"`
	Converged   bool        `json:"converged"`
}

// Run parses the input once and simulates it for every lambda, sharing the
// read-only weight matrix between goroutines. Results are returned in the
// order of lambdas. A cancelled context stops runs that have not started.
func Run(ctx context.Context, in gfcm.Input, base gfcm.Config, lambdas []float64, opts Options) ([]Result, error) {
	if len(lambdas) == 0 {
		return nil, ErrNoLambdas
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	w, err := gfcm.BuildWeights(in.Concepts, in.Weights)
	if err != nil {
		return nil, err
	}
	initial, err := gfcm.BuildState(in.Concepts, in.Initial)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(lambdas))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}

	for i, lambda := range lambdas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := base
			cfg.Lambda = lambda
			tr, err := gfcm.NewEngine(cfg).Run(w, initial)
			if err != nil {
				return fmt.Errorf("lambda %g: %w", lambda, err)
			}
			at, ok := tr.Converged(tol)
			results[i] = Result{Lambda: lambda, Trace: tr, ConvergedAt: at, Converged: ok}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParseLambdas reads a comma-separated list ("0.5,1,2") or a range
// "start:stop:step" inclusive of stop.
func ParseLambdas(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoLambdas
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("range %q must be start:stop:step", s)
		}
		var v [3]float64
		for i, p := range parts {
			f, err := parseLambda(p)
			if err != nil {
				return nil, fmt.Errorf("range %q: %w", s, err)
			}
			v[i] = f
		}
		start, stop, step := v[0], v[1], v[2]
		if step <= 0 || stop < start {
			return nil, fmt.Errorf("range %q must have step > 0 and stop >= start", s)
		}
		var out []float64
		// Step counting avoids accumulating floating-point drift.
		for k := 0; ; k++ {
			x := start + float64(k)*step
			if x > stop+step*1e-9 {
				break
			}
			out = append(out, x)
		}
		return out, nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		f, err := parseLambda(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// parseLambda reads one finite value.
func parseLambda(p string) (float64, error) {
	p = strings.TrimSpace(p)
	f, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return 0, fmt.Errorf("lambda %q: %w", p, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("lambda %q must be finite", p)
	}
	return f, nil
}
