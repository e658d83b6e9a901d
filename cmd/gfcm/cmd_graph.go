package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
	"github.com/nvandessel/gfcm/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the concept graph",
		Long: `Render a map's concept graph as Graphviz DOT or JSON.

Node labels include the initial activation when --initial is given. Edge
colour follows the sign of the weight's centroid.

With --serve, start a local viewer instead. When --initial is given the map
is simulated first and the viewer also shows the centroid chart and the
triangle evolution. Press Ctrl+C to stop.

Examples:
  gfcm graph -w W.csv | dot -Tpng > graph.png
  gfcm graph -w W.csv -i I.csv --format json -o graph.json
  gfcm graph -w W.csv -i I.csv --serve --lambda 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			outputPath, _ := cmd.Flags().GetString("output")
			serve, _ := cmd.Flags().GetBool("serve")

			format, err := visualization.ParseFormat(formatStr)
			if err != nil {
				return err
			}

			w, initial, err := weightMatrix(cmd)
			if err != nil {
				return err
			}
			g := metrics.BuildGraph(w)

			if serve {
				return serveGraph(cmd, g, w, initial)
			}

			data, err := visualization.Render(format, g, initial)
			if err != nil {
				return err
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", outputPath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputPath)
				return nil
			}

			out := cmd.OutOrStdout()
			out.Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	addInputFlags(cmd, "Initial activation table shown in node labels (optional)")
	addSimulationFlags(cmd)
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().Bool("serve", false, "Start a local viewer in the browser")
	cmd.Flags().Bool("no-browser", false, "With --serve, print the URL without opening a browser")

	return cmd
}

// serveGraph runs the viewer until interrupted. initial may be nil, in which
// case no simulation is run.
func serveGraph(cmd *cobra.Command, g *metrics.Graph, w *gfcm.WeightMatrix, initial gfcm.State) error {
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	var tr *gfcm.Trace
	if initial != nil {
		sim, err := simulationConfig(cmd, cfg)
		if err != nil {
			return err
		}
		tr, err = gfcm.NewEngine(sim).Run(w, initial)
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	srv := visualization.NewServer(g, initial, tr)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Addr is set once the listener is up; ListenAndServe returns early only
	// on a listen error.
	for srv.Addr() == "" {
		select {
		case err := <-errCh:
			return err
		case <-time.After(10 * time.Millisecond):
		}
	}

	url := "http://" + srv.Addr() + "/"
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s (Ctrl+C to stop)\n", url)
	if !noBrowser {
		if err := visualization.OpenBrowser(url); err != nil {
			logger.Warn("could not open browser", "error", err)
		}
	}

	return <-errCh
}
