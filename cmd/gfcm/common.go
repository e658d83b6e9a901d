package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/config"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/logging"
	"github.com/nvandessel/gfcm/internal/mapfile"
	"github.com/nvandessel/gfcm/internal/table"
)

// loadConfig loads ~/.gfcm/config.yaml with GFCM_* overrides and validates it.
func loadConfig() (*config.GFCMConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// projectRoot resolves the directory holding .gfcm/: the --root flag when
// given, then store.root from the config, then the --root default.
func projectRoot(cmd *cobra.Command, cfg *config.GFCMConfig) string {
	root, _ := cmd.Flags().GetString("root")
	if !cmd.Flags().Changed("root") && cfg.Store.Root != "" {
		return cfg.Store.Root
	}
	return root
}

// newLogger returns the operational logger. It writes to stderr so stdout
// stays clean for --json output.
func newLogger(cmd *cobra.Command, cfg *config.GFCMConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// writeJSON encodes v to the command's stdout.
func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// addInputFlags registers the flags naming a map's input tables.
func addInputFlags(cmd *cobra.Command, initialUsage string) {
	cmd.Flags().StringP("weights", "w", "", "Weight matrix table (.csv or .xlsx)")
	cmd.Flags().StringP("initial", "i", "", initialUsage)
	cmd.Flags().String("map", "", "Graph JSON from the map builder (replaces --weights/--initial)")
}

// inputTables reads the tables named by --weights/--initial or --map.
// The initial table is empty when no --initial is given. source describes
// where the tables came from.
func inputTables(cmd *cobra.Command) (weights, initial table.Table, source string, err error) {
	weightsPath, _ := cmd.Flags().GetString("weights")
	initialPath, _ := cmd.Flags().GetString("initial")
	mapPath, _ := cmd.Flags().GetString("map")

	if mapPath != "" {
		if weightsPath != "" || initialPath != "" {
			return table.Table{}, table.Table{}, "", fmt.Errorf("--map cannot be combined with --weights or --initial")
		}
		raw, err := os.ReadFile(mapPath)
		if err != nil {
			return table.Table{}, table.Table{}, "", fmt.Errorf("read map: %w", err)
		}
		weights, initial, err = mapfile.Parse(raw)
		if err != nil {
			return table.Table{}, table.Table{}, "", fmt.Errorf("parse map %s: %w", mapPath, err)
		}
		return weights, initial, mapPath, nil
	}

	if weightsPath == "" {
		return table.Table{}, table.Table{}, "", fmt.Errorf("either --weights or --map is required")
	}
	weights, err = table.Load(weightsPath)
	if err != nil {
		return table.Table{}, table.Table{}, "", fmt.Errorf("load weights: %w", err)
	}
	source = weightsPath
	if initialPath != "" {
		initial, err = table.Load(initialPath)
		if err != nil {
			return table.Table{}, table.Table{}, "", fmt.Errorf("load initial: %w", err)
		}
		source += "," + initialPath
	}
	return weights, initial, source, nil
}

// simulationInput reads both tables and converts them to engine input.
func simulationInput(cmd *cobra.Command) (gfcm.Input, string, error) {
	weights, initial, source, err := inputTables(cmd)
	if err != nil {
		return gfcm.Input{}, "", err
	}
	if len(initial.ColLabels) == 0 && len(initial.RowLabels) == 0 {
		return gfcm.Input{}, "", fmt.Errorf("--initial is required")
	}
	in, err := table.ToInput(weights, initial)
	if err != nil {
		return gfcm.Input{}, "", err
	}
	return in, source, nil
}

// weightMatrix reads the weight table and builds the matrix. The initial
// state is returned when an initial table was given, nil otherwise.
func weightMatrix(cmd *cobra.Command) (*gfcm.WeightMatrix, gfcm.State, error) {
	weights, initial, _, err := inputTables(cmd)
	if err != nil {
		return nil, nil, err
	}

	if len(initial.ColLabels) == 0 {
		concepts, cells, err := table.WeightCells(weights)
		if err != nil {
			return nil, nil, err
		}
		w, err := gfcm.BuildWeights(concepts, cells)
		return w, nil, err
	}

	in, err := table.ToInput(weights, initial)
	if err != nil {
		return nil, nil, err
	}
	w, err := gfcm.BuildWeights(in.Concepts, in.Weights)
	if err != nil {
		return nil, nil, err
	}
	state, err := gfcm.BuildState(in.Concepts, in.Initial)
	if err != nil {
		return nil, nil, err
	}
	return w, state, nil
}

// simulationConfig applies the --lambda, --iterations and --clamp flags to
// the configured defaults. Any finite lambda is accepted.
func simulationConfig(cmd *cobra.Command, cfg *config.GFCMConfig) (gfcm.Config, error) {
	sim := cfg.SimulationDefaults()
	if cmd.Flags().Changed("lambda") {
		sim.Lambda, _ = cmd.Flags().GetFloat64("lambda")
		if math.IsNaN(sim.Lambda) || math.IsInf(sim.Lambda, 0) {
			return gfcm.Config{}, fmt.Errorf("--lambda must be finite, got %g", sim.Lambda)
		}
	}
	if cmd.Flags().Changed("iterations") {
		sim.Iterations, _ = cmd.Flags().GetInt("iterations")
	}
	sim.Clamp, _ = cmd.Flags().GetStringSlice("clamp")
	return sim, nil
}

// addSimulationFlags registers the flags read by simulationConfig.
func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().Float64P("lambda", "l", 1.0, "tanh steepness (default from config)")
	cmd.Flags().IntP("iterations", "n", 15, "Number of propagation steps (default from config)")
	cmd.Flags().StringSlice("clamp", nil, "Concepts held at their initial value (comma-separated)")
}

// formatCentroid renders a crisp value with fixed precision for tables.
func formatCentroid(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// printRows prints rows as left-aligned columns.
func printRows(w io.Writer, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(cell)
			} else {
				fmt.Fprintf(&b, "%-*s", widths[i], cell)
			}
		}
		fmt.Fprintln(w, b.String())
	}
}
