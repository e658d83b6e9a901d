package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/export"
	"github.com/nvandessel/gfcm/internal/mapfile"
	"github.com/nvandessel/gfcm/internal/table"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Convert a map builder graph into W and I tables",
		Long: `Convert graph JSON exported by a map builder into the weight matrix and
initial activation tables read by run, sweep and metrics.

Nodes and edges carry an optional "tfn" value; missing values default to
0.0,0.0,0.0. Edges naming unknown nodes are skipped.

Examples:
  gfcm build --map graph.json --out-dir maps/
  gfcm build --map graph.json --out-dir maps/ --format xlsx
  gfcm build --map graph.json --xlsx map.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			mapPath, _ := cmd.Flags().GetString("map")
			outDir, _ := cmd.Flags().GetString("out-dir")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			format, _ := cmd.Flags().GetString("format")
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("invalid format %q (valid: csv, xlsx)", format)
			}

			raw, err := os.ReadFile(mapPath)
			if err != nil {
				return fmt.Errorf("read map: %w", err)
			}
			weights, initial, err := mapfile.Parse(raw)
			if err != nil {
				return fmt.Errorf("parse map %s: %w", mapPath, err)
			}

			var written []string
			if xlsxPath != "" {
				if err := export.WriteMatricesXLSX(xlsxPath, weights, initial); err != nil {
					return fmt.Errorf("write %s: %w", xlsxPath, err)
				}
				written = append(written, xlsxPath)
			} else {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("create %s: %w", outDir, err)
				}
				wPath := filepath.Join(outDir, "W."+format)
				iPath := filepath.Join(outDir, "I."+format)
				if err := writeTables(format, wPath, iPath, weights, initial); err != nil {
					return err
				}
				written = append(written, wPath, iPath)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"concepts": weights.ColLabels,
					"files":    written,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Built map with %d concepts\n", len(weights.ColLabels))
			for _, path := range written {
				fmt.Fprintf(out, "Wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().String("map", "", "Graph JSON from the map builder")
	cmd.Flags().String("out-dir", ".", "Directory for the W and I tables")
	cmd.Flags().String("format", "csv", "Table format in --out-dir: csv or xlsx")
	cmd.Flags().String("xlsx", "", "Write both tables to this XLSX workbook instead")
	cmd.MarkFlagRequired("map")

	return cmd
}

// writeTables writes the weight and initial tables as separate files.
func writeTables(format, wPath, iPath string, weights, initial table.Table) error {
	if format == "xlsx" {
		if err := export.WriteTableXLSX(wPath, export.SheetWeights, weights); err != nil {
			return fmt.Errorf("write %s: %w", wPath, err)
		}
		if err := export.WriteTableXLSX(iPath, export.SheetInitial, initial); err != nil {
			return fmt.Errorf("write %s: %w", iPath, err)
		}
		return nil
	}
	if err := writeFile(wPath, func(w io.Writer) error {
		return export.WriteTableCSV(w, weights)
	}); err != nil {
		return err
	}
	return writeFile(iPath, func(w io.Writer) error {
		return export.WriteTableCSV(w, initial)
	})
}
