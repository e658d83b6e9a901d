// Package export writes simulation traces, metric reports and input tables
// as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
	"github.com/nvandessel/gfcm/internal/table"
)

// Sheet names used in exported workbooks.
const (
	SheetWeights   = "Matrix_W"
	SheetInitial   = "Matrix_I"
	SheetCentroids = "Centroids"
	SheetFuzzy     = "Fuzzy"
)

// MetricsHeader is the header row of WriteMetricsCSV. PageRank ignores edge
// weights and sums to 1 over the graph.
var MetricsHeader = []string{
	"Concept", "Degree Centrality", "In-Degree", "Out-Degree", "Betweenness", "Closeness",
	"Eigenvector", "PageRank (unweighted)",
}

// WriteCentroidsCSV writes one row per iteration with the crisp value of every concept.
func WriteCentroidsCSV(w io.Writer, tr *gfcm.Trace) error {
	return writeCSV(w, centroidRecords(tr))
}

// WriteFuzzyCSV writes one row per iteration with the fuzzy value of every
// concept rendered as "[lo, mid, hi]".
func WriteFuzzyCSV(w io.Writer, tr *gfcm.Trace) error {
	return writeCSV(w, fuzzyRecords(tr))
}

// WriteMetricsCSV writes one row per concept of the report. The Eigenvector
// column is empty when the report skipped it.
func WriteMetricsCSV(w io.Writer, r metrics.Report) error {
	records := make([][]string, 0, len(r.Concepts)+1)
	records = append(records, MetricsHeader)
	for _, c := range r.Concepts {
		records = append(records, []string{
			c.Concept,
			formatFloat(c.DegreeCentrality),
			strconv.Itoa(c.InDegree),
			strconv.Itoa(c.OutDegree),
			formatFloat(c.Betweenness),
			formatFloat(c.Closeness),
			formatOptional(c.Eigenvector),
			formatFloat(c.PageRank),
		})
	}
	return writeCSV(w, records)
}

// WriteTableCSV writes t in the layout table.Load reads back.
func WriteTableCSV(w io.Writer, t table.Table) error {
	return writeCSV(w, t.Records())
}

// WriteMatricesXLSX writes the weight and initial tables to a two-sheet workbook.
func WriteMatricesXLSX(path string, weights, initial table.Table) error {
	return writeWorkbook(path, []sheet{
		{SheetWeights, stringRows(weights.Records())},
		{SheetInitial, stringRows(initial.Records())},
	})
}

// WriteTableXLSX writes a single table to a one-sheet workbook.
func WriteTableXLSX(path, sheetName string, t table.Table) error {
	return writeWorkbook(path, []sheet{{sheetName, stringRows(t.Records())}})
}

// WriteTraceXLSX writes centroids and fuzzy states to a two-sheet workbook.
// Centroids are stored as numbers; excelize stores NaN and the infinities as
// text.
func WriteTraceXLSX(path string, tr *gfcm.Trace) error {
	centroids := make([][]interface{}, 0, len(tr.Crisp)+1)
	centroids = append(centroids, stringRow(header(tr)))
	for t, row := range tr.Crisp {
		r := make([]interface{}, 0, len(row)+1)
		r = append(r, t)
		for _, v := range row {
			r = append(r, v)
		}
		centroids = append(centroids, r)
	}

	return writeWorkbook(path, []sheet{
		{SheetCentroids, centroids},
		{SheetFuzzy, stringRows(fuzzyRecords(tr))},
	})
}

func header(tr *gfcm.Trace) []string {
	return append([]string{"Iteration"}, tr.Concepts...)
}

func centroidRecords(tr *gfcm.Trace) [][]string {
	records := make([][]string, 0, len(tr.Crisp)+1)
	records = append(records, header(tr))
	for t, row := range tr.Crisp {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, strconv.Itoa(t))
		for _, v := range row {
			rec = append(rec, formatFloat(v))
		}
		records = append(records, rec)
	}
	return records
}

func fuzzyRecords(tr *gfcm.Trace) [][]string {
	records := make([][]string, 0, len(tr.Fuzzy)+1)
	records = append(records, header(tr))
	for t, state := range tr.Fuzzy {
		rec := make([]string, 0, len(state)+1)
		rec = append(rec, strconv.Itoa(t))
		for _, v := range state {
			rec = append(rec, v.String())
		}
		records = append(records, rec)
	}
	return records
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

type sheet struct {
	name string
	rows [][]interface{}
}

func writeWorkbook(path string, sheets []sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", s.name, err)
		}

		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", s.name, r+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func stringRow(rec []string) []interface{} {
	row := make([]interface{}, len(rec))
	for i, v := range rec {
		row[i] = v
	}
	return row
}

func stringRows(records [][]string) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		rows[i] = stringRow(rec)
	}
	return rows
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
