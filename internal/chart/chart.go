// Package chart draws centroid trajectories of a simulation trace as a PNG
// line chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/nvandessel/gfcm/internal/gfcm"
)

var (
	// ErrNoSeries is returned when no selected concept exists in the trace.
	ErrNoSeries = errors.New("no concepts selected for chart")

	// ErrTooShort is returned for traces with a single state: a line needs at
	// least two iterations.
	ErrTooShort = errors.New("trace has fewer than two iterations")
)

const (
	defaultWidth  = 960
	defaultHeight = 540
)

// RenderCentroids writes a PNG chart of the centroid of each selected concept
// over iterations. Unknown concepts are skipped.
func RenderCentroids(w io.Writer, tr *gfcm.Trace, concepts []string) error {
	if len(tr.Crisp) < 2 {
		return ErrTooShort
	}

	xs := make([]float64, len(tr.Crisp))
	for t := range xs {
		xs[t] = float64(t)
	}

	var series []chart.Series
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, name := range concepts {
		_, crisp, ok := tr.Series(name)
		if !ok {
			continue
		}
		for _, v := range crisp {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: crisp,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(len(series)),
				StrokeWidth: 2.0,
			},
		})
	}
	if len(series) == 0 {
		return ErrNoSeries
	}

	// Flat trajectories would collapse the y range to zero.
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 0.1
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Centroid evolution (lambda=%g)", tr.Lambda),
		Width:  defaultWidth,
		Height: defaultHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Iteration",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
			Ticks: iterationTicks(len(xs)),
		},
		YAxis: chart.YAxis{
			Name:  "Centroid",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// iterationTicks labels at most ~20 evenly spaced iterations.
func iterationTicks(n int) []chart.Tick {
	step := 1
	if n > 20 {
		step = int(math.Ceil(float64(n) / 20))
	}
	var ticks []chart.Tick
	for t := 0; t < n; t += step {
		ticks = append(ticks, chart.Tick{Value: float64(t), Label: fmt.Sprintf("%d", t)})
	}
	return ticks
}
