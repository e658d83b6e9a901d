package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/export"
	"github.com/nvandessel/gfcm/internal/metrics"
)

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute graph metrics of a weight matrix",
		Long: `Compute centrality indices for every concept of a map.

An edge exists wherever a weight's middle value is non-zero. Degree,
betweenness and closeness are normalised. Eigenvector centrality is skipped
when the graph is not connected or does not settle. PageRank ignores edge
weights, sums to 1 and uses the damping factor from the config
(metrics.damping_factor).

Examples:
  gfcm metrics -w W.csv
  gfcm metrics --map graph.json --output metrics.csv
  gfcm metrics -w W.xlsx --json
  gfcm metrics -w W.csv --concept Demand`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")
			concept, _ := cmd.Flags().GetString("concept")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w, _, err := weightMatrix(cmd)
			if err != nil {
				return err
			}
			report := metrics.Compute(metrics.BuildGraph(w), cfg.PageRank())

			if concept != "" {
				m, ok := report.Lookup(concept)
				if !ok {
					return fmt.Errorf("unknown concept %q", concept)
				}
				if jsonOut {
					return writeJSON(cmd, m)
				}
				printRows(cmd.OutOrStdout(), metricRows([]metrics.ConceptMetrics{m}))
				return nil
			}

			if outputPath != "" {
				if err := writeFile(outputPath, func(out io.Writer) error {
					return export.WriteMetricsCSV(out, report)
				}); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			printRows(out, metricRows(report.Concepts))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Edges: %d  Density: %s  Average degree: %s\n",
				report.Edges, formatCentroid(report.Density), formatCentroid(report.AverageDegree))
			if report.EigenvectorSkipped != "" {
				fmt.Fprintf(out, "Eigenvector centrality skipped: %s\n", report.EigenvectorSkipped)
			}
			if outputPath != "" {
				fmt.Fprintf(out, "Wrote %s\n", outputPath)
			}
			return nil
		},
	}

	addInputFlags(cmd, "Initial activation table (ignored)")
	cmd.Flags().StringP("output", "o", "", "Write the metrics to this CSV file")
	cmd.Flags().String("concept", "", "Show only this concept")

	return cmd
}

func metricRows(concepts []metrics.ConceptMetrics) [][]string {
	rows := [][]string{{"Concept", "In", "Out", "Degree", "Betweenness", "Closeness", "Eigenvector", "PageRank"}}
	for _, c := range concepts {
		eigen := "-"
		if c.Eigenvector != nil {
			eigen = formatCentroid(*c.Eigenvector)
		}
		rows = append(rows, []string{
			c.Concept,
			fmt.Sprintf("%d", c.InDegree),
			fmt.Sprintf("%d", c.OutDegree),
			formatCentroid(c.DegreeCentrality),
			formatCentroid(c.Betweenness),
			formatCentroid(c.Closeness),
			eigen,
			formatCentroid(c.PageRank),
		})
	}
	return rows
}
