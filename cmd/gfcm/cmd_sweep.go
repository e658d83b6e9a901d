package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/store"
	"github.com/nvandessel/gfcm/internal/sweep"
)

// sweepItem is one row of the --json output of gfcm sweep.
type sweepItem struct {
	Lambda      float64     `json:"lambda"`
	Converged   bool        `json:"converged"`
	ConvergedAt int         `json:"converged_at,omitempty"`
	Final       gfcm.Vector `json:"final"`
	RunID       string      `json:"run_id,omitempty"`
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the same map for several lambda values",
		Long: `Simulate one map for a list or range of tanh steepness values.

Runs execute concurrently and share the parsed weight matrix. Results are
reported in lambda order.

Examples:
  gfcm sweep -w W.csv -i I.csv --lambdas 0.5,1,2,4
  gfcm sweep -w W.csv -i I.csv --lambdas 0.5:3:0.5 --concurrency 8
  gfcm sweep --map graph.json --lambdas 1:5:1 --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			lambdaSpec, _ := cmd.Flags().GetString("lambdas")
			save, _ := cmd.Flags().GetBool("save")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			lambdas, err := sweep.ParseLambdas(lambdaSpec)
			if err != nil {
				return err
			}

			in, source, err := simulationInput(cmd)
			if err != nil {
				return err
			}

			concurrency := cfg.Sweep.Concurrency
			if cmd.Flags().Changed("concurrency") {
				concurrency, _ = cmd.Flags().GetInt("concurrency")
			}

			sim, err := simulationConfig(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			logger.Debug("sweep starting", "source", source, "lambdas", len(lambdas), "concurrency", concurrency)
			results, err := sweep.Run(ctx, in, sim, lambdas, sweep.Options{
				Limit:     concurrency,
				Tolerance: cfg.Simulation.ConvergenceTolerance,
			})
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			items := make([]sweepItem, len(results))
			for i, r := range results {
				items[i] = sweepItem{
					Lambda:    r.Lambda,
					Converged: r.Converged,
					Final:     r.Trace.Crisp[len(r.Trace.Crisp)-1],
				}
				if r.Converged {
					items[i].ConvergedAt = r.ConvergedAt
				}
			}

			if save {
				runs, err := store.NewSQLiteRunStore(projectRoot(cmd, cfg))
				if err != nil {
					return fmt.Errorf("open run store: %w", err)
				}
				defer runs.Close()
				for i, r := range results {
					name := fmt.Sprintf("sweep lambda=%g", r.Lambda)
					id, err := runs.SaveRun(ctx, store.RunFromTrace(name, source, r.Trace))
					if err != nil {
						return fmt.Errorf("save run: %w", err)
					}
					items[i].RunID = id
				}
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"concepts": in.Concepts,
					"results":  items,
				})
			}

			rows := make([][]string, 0, len(items)+1)
			rows = append(rows, append([]string{"Lambda", "Converged"}, in.Concepts...))
			for _, it := range items {
				conv := "no"
				if it.Converged {
					conv = fmt.Sprintf("t=%d", it.ConvergedAt)
				}
				row := []string{fmt.Sprintf("%g", it.Lambda), conv}
				for _, v := range it.Final {
					row = append(row, formatCentroid(v))
				}
				rows = append(rows, row)
			}
			printRows(cmd.OutOrStdout(), rows)
			if save {
				fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %d runs\n", len(items))
			}
			return nil
		},
	}

	addInputFlags(cmd, "Initial activation table (.csv or .xlsx)")
	addSimulationFlags(cmd)
	cmd.Flags().String("lambdas", "", "Lambda values: a list (0.5,1,2) or a range start:stop:step")
	cmd.Flags().Int("concurrency", 4, "Maximum simultaneous runs (default from config)")
	cmd.Flags().Bool("save", false, "Record every run in the history store")
	cmd.MarkFlagRequired("lambdas")

	return cmd
}
