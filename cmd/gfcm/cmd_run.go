package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/chart"
	"github.com/nvandessel/gfcm/internal/export"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/logging"
	"github.com/nvandessel/gfcm/internal/store"
	"github.com/nvandessel/gfcm/internal/visualization"
)

// runResult is the --json output of gfcm run.
type runResult struct {
	RunID       string        `json:"run_id,omitempty"`
	Source      string        `json:"source"`
	Concepts    []string      `json:"concepts"`
	Lambda      float64       `json:"lambda"`
	Iterations  int           `json:"iterations"`
	Clamped     []string      `json:"clamped,omitempty"`
	Crisp       []gfcm.Vector `json:"crisp"`
	Fuzzy       []gfcm.State  `json:"fuzzy,omitempty"`
	Final       gfcm.State    `json:"final"`
	Converged   bool          `json:"converged"`
	ConvergedAt int           `json:"converged_at,omitempty"`
	Outputs     []string      `json:"outputs,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a fuzzy cognitive map",
		Long: `Run a simulation from a weight matrix and an initial activation table.

Row i of the weight matrix holds the weights feeding concept i. Cells may be
crisp ("0.5"), intervals ("0.1 0.3") or triangles ("[0.1, 0.2, 0.3]").
The run is recorded in .gfcm/gfcm.db unless the store is disabled.

Examples:
  gfcm run -w W.csv -i I.csv
  gfcm run -w W.xlsx -i I.xlsx --lambda 2 --iterations 30 --clamp A,B
  gfcm run --map graph.json --chart centroids.png --xlsx trace.xlsx
  gfcm run -w W.csv -i I.csv --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			name, _ := cmd.Flags().GetString("name")
			noSave, _ := cmd.Flags().GetBool("no-save")
			withFuzzy, _ := cmd.Flags().GetBool("fuzzy")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			root := projectRoot(cmd, cfg)
			logger := newLogger(cmd, cfg)

			in, source, err := simulationInput(cmd)
			if err != nil {
				return err
			}
			sim, err := simulationConfig(cmd, cfg)
			if err != nil {
				return err
			}
			logger.Debug("input loaded", "source", source, "concepts", len(in.Concepts),
				"lambda", sim.Lambda, "iterations", sim.Iterations)

			tr, err := gfcm.Simulate(in, sim)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			var runID string
			if cfg.Store.Enabled && !noSave {
				runs, err := store.NewSQLiteRunStore(root)
				if err != nil {
					return fmt.Errorf("open run store: %w", err)
				}
				defer runs.Close()
				runID, err = runs.SaveRun(cmd.Context(), store.RunFromTrace(name, source, tr))
				if err != nil {
					return fmt.Errorf("save run: %w", err)
				}
				logger.Debug("run saved", "run_id", runID, "db", runs.Path())
			}

			steps := logging.NewStepLogger(store.LocalGfcmPath(root), cfg.Logging.Level)
			defer steps.Close()
			traceID := runID
			if traceID == "" {
				traceID = store.NewRunID()
			}
			steps.LogTrace(traceID, tr)

			outputs, err := writeRunOutputs(cmd, tr)
			if err != nil {
				return err
			}

			convergedAt, converged := tr.Converged(cfg.Simulation.ConvergenceTolerance)

			if jsonOut {
				res := runResult{
					RunID:      runID,
					Concepts:   tr.Concepts,
					Lambda:     tr.Lambda,
					Iterations: tr.Iterations,
					Clamped:    tr.Clamped,
					Crisp:      tr.Crisp,
					Final:      tr.Final(),
					Converged:  converged,
					Outputs:    outputs,
					Source:     source,
				}
				if converged {
					res.ConvergedAt = convergedAt
				}
				if withFuzzy {
					res.Fuzzy = tr.Fuzzy
				}
				return writeJSON(cmd, res)
			}

			out := cmd.OutOrStdout()
			printTrace(out, tr, withFuzzy)
			fmt.Fprintln(out)
			if converged {
				fmt.Fprintf(out, "Converged at iteration %d (tolerance %g)\n", convergedAt, cfg.Simulation.ConvergenceTolerance)
			} else {
				fmt.Fprintf(out, "Did not converge within %d iterations (tolerance %g)\n", tr.Iterations, cfg.Simulation.ConvergenceTolerance)
			}
			for _, path := range outputs {
				fmt.Fprintf(out, "Wrote %s\n", path)
			}
			if runID != "" {
				fmt.Fprintf(out, "Run saved: %s\n", runID)
			}
			return nil
		},
	}

	addInputFlags(cmd, "Initial activation table (.csv or .xlsx)")
	addSimulationFlags(cmd)
	cmd.Flags().String("name", "", "Label for the recorded run")
	cmd.Flags().Bool("no-save", false, "Do not record the run in the history store")
	cmd.Flags().Bool("fuzzy", false, "Include the fuzzy state of every iteration in the output")
	cmd.Flags().String("centroids", "", "Write centroids per iteration to this CSV file")
	cmd.Flags().String("fuzzy-csv", "", "Write fuzzy states per iteration to this CSV file")
	cmd.Flags().String("xlsx", "", "Write centroids and fuzzy states to this XLSX workbook")
	cmd.Flags().String("chart", "", "Write a PNG chart of the centroid trajectories")
	cmd.Flags().StringSlice("concepts", nil, "Concepts to plot in --chart and --triangles (default: all)")
	cmd.Flags().String("triangles", "", "Write the triangle evolution of each concept as JSON")

	return cmd
}

// writeRunOutputs writes every requested export of tr and returns the paths written.
func writeRunOutputs(cmd *cobra.Command, tr *gfcm.Trace) ([]string, error) {
	centroidsPath, _ := cmd.Flags().GetString("centroids")
	fuzzyPath, _ := cmd.Flags().GetString("fuzzy-csv")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	chartPath, _ := cmd.Flags().GetString("chart")
	trianglesPath, _ := cmd.Flags().GetString("triangles")
	concepts, _ := cmd.Flags().GetStringSlice("concepts")

	var written []string

	if centroidsPath != "" {
		if err := writeFile(centroidsPath, func(w io.Writer) error {
			return export.WriteCentroidsCSV(w, tr)
		}); err != nil {
			return nil, err
		}
		written = append(written, centroidsPath)
	}

	if fuzzyPath != "" {
		if err := writeFile(fuzzyPath, func(w io.Writer) error {
			return export.WriteFuzzyCSV(w, tr)
		}); err != nil {
			return nil, err
		}
		written = append(written, fuzzyPath)
	}

	if xlsxPath != "" {
		if err := export.WriteTraceXLSX(xlsxPath, tr); err != nil {
			return nil, fmt.Errorf("write %s: %w", xlsxPath, err)
		}
		written = append(written, xlsxPath)
	}

	if chartPath != "" {
		selected := concepts
		if len(selected) == 0 {
			selected = tr.Concepts
		}
		if err := writeFile(chartPath, func(w io.Writer) error {
			return chart.RenderCentroids(w, tr, selected)
		}); err != nil {
			return nil, err
		}
		written = append(written, chartPath)
	}

	if trianglesPath != "" {
		if err := writeFile(trianglesPath, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(visualization.TriangleEvolution(tr, concepts))
		}); err != nil {
			return nil, err
		}
		written = append(written, trianglesPath)
	}

	return written, nil
}

// printTrace prints the centroid of every concept at every iteration,
// followed by the final fuzzy state.
func printTrace(w io.Writer, tr *gfcm.Trace, withFuzzy bool) {
	fmt.Fprintf(w, "Simulated %d concepts for %d iterations (lambda=%g)\n", len(tr.Concepts), tr.Iterations, tr.Lambda)
	if len(tr.Clamped) > 0 {
		fmt.Fprintf(w, "Clamped: %v\n", tr.Clamped)
	}
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(tr.Crisp)+1)
	rows = append(rows, append([]string{"Iteration"}, tr.Concepts...))
	for t, state := range tr.Crisp {
		row := make([]string, 0, len(state)+1)
		row = append(row, fmt.Sprintf("%d", t))
		for _, v := range state {
			row = append(row, formatCentroid(v))
		}
		rows = append(rows, row)
	}
	printRows(w, rows)

	if withFuzzy {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fuzzy states:")
		for t, state := range tr.Fuzzy {
			fmt.Fprintf(w, "  t=%d:", t)
			for i, v := range state {
				fmt.Fprintf(w, " %s=%s", tr.Concepts[i], v)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Final state:")
	final := tr.Final()
	finalRows := make([][]string, len(final))
	for i, v := range final {
		finalRows[i] = []string{"  " + tr.Concepts[i], v.String(), formatCentroid(tr.Crisp[len(tr.Crisp)-1][i])}
	}
	printRows(w, finalRows)
}
