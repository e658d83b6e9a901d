// Package table loads labelled tables of raw cells from CSV or XLSX files and
// turns a weight table plus an initial-activation table into simulation input.
//
// The first column of every table is its row index and the first row holds
// the column labels, matching the layout written by the export package.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither .csv nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Table is a labelled grid of raw cell text.
type Table struct {
	RowLabels []string
	ColLabels []string
	Cells     [][]string // Cells[r][c], len(RowLabels) × len(ColLabels)
}

// ShapeError reports mismatched concept labels between tables.
type ShapeError struct {
	Table string   // which table failed ("weights", "initial")
	Want  []string // expected labels
	Got   []string // labels found
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s table labels %v do not match concepts %v", e.Table, e.Got, e.Want)
}

// Load reads a table from a .csv or .xlsx file. XLSX files use their first sheet.
func Load(path string) (Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return Table{}, fmt.Errorf("%w: %s (use .csv or .xlsx)", ErrUnsupportedFormat, path)
	}
}

// FromRecords builds a table from raw rows: row 0 holds the column labels
// after a leading index header, every later row starts with its row label.
// Short rows are padded with empty cells.
func FromRecords(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, fmt.Errorf("table is empty")
	}
	header := records[0]
	if len(header) < 2 {
		return Table{}, fmt.Errorf("table header needs an index column and at least one label, got %d columns", len(header))
	}

	t := Table{ColLabels: append([]string(nil), header[1:]...)}
	width := len(t.ColLabels)
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		if len(rec)-1 > width {
			return Table{}, fmt.Errorf("row %q has %d cells, header has %d labels", rec[0], len(rec)-1, width)
		}
		row := make([]string, width)
		copy(row, rec[1:])
		t.RowLabels = append(t.RowLabels, rec[0])
		t.Cells = append(t.Cells, row)
	}
	return t, nil
}

// Records is the inverse of FromRecords.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.RowLabels)+1)
	out = append(out, append([]string{""}, t.ColLabels...))
	for r, label := range t.RowLabels {
		out = append(out, append([]string{label}, t.Cells[r]...))
	}
	return out
}

// Transpose swaps rows and columns.
func (t Table) Transpose() Table {
	out := Table{
		RowLabels: append([]string(nil), t.ColLabels...),
		ColLabels: append([]string(nil), t.RowLabels...),
		Cells:     make([][]string, len(t.ColLabels)),
	}
	for c := range t.ColLabels {
		out.Cells[c] = make([]string, len(t.RowLabels))
		for r := range t.RowLabels {
			out.Cells[c][r] = t.Cells[r][c]
		}
	}
	return out
}

// WeightCells checks that the weight table is square with identical row and
// column labels and returns the concepts with their raw weight cells.
func WeightCells(weights Table) ([]string, [][]fuzzy.Cell, error) {
	concepts := weights.RowLabels
	if len(concepts) == 0 {
		return nil, nil, fmt.Errorf("weights table has no concepts")
	}
	if !slices.Equal(weights.ColLabels, concepts) {
		return nil, nil, &ShapeError{Table: "weights", Want: concepts, Got: weights.ColLabels}
	}

	cells := make([][]fuzzy.Cell, len(weights.Cells))
	for i, row := range weights.Cells {
		cells[i] = textCells(row)
	}
	return append([]string(nil), concepts...), cells, nil
}

// ToInput checks the weight table with WeightCells and that the initial
// table covers the same concepts, then returns the raw simulation input. An
// initial table given as a single column indexed by the concepts is
// transposed first. Row and cell counts are checked later, when gfcm builds
// the matrix.
func ToInput(weights, initial Table) (gfcm.Input, error) {
	concepts, cells, err := WeightCells(weights)
	if err != nil {
		return gfcm.Input{}, err
	}

	if len(initial.ColLabels) == 1 && slices.Equal(initial.RowLabels, concepts) {
		initial = initial.Transpose()
	}
	if !slices.Equal(initial.ColLabels, concepts) {
		return gfcm.Input{}, &ShapeError{Table: "initial", Want: concepts, Got: initial.ColLabels}
	}
	if len(initial.Cells) == 0 {
		return gfcm.Input{}, fmt.Errorf("initial table has no rows")
	}

	return gfcm.Input{
		Concepts: concepts,
		Weights:  cells,
		Initial:  textCells(initial.Cells[0]),
	}, nil
}

func textCells(row []string) []fuzzy.Cell {
	cells := make([]fuzzy.Cell, len(row))
	for i, s := range row {
		cells[i] = fuzzy.TextCell(s)
	}
	return cells
}

// LoadInput loads both tables and converts them with ToInput.
func LoadInput(weightsPath, initialPath string) (gfcm.Input, error) {
	w, err := Load(weightsPath)
	if err != nil {
		return gfcm.Input{}, fmt.Errorf("load weights: %w", err)
	}
	i, err := Load(initialPath)
	if err != nil {
		return gfcm.Input{}, fmt.Errorf("load initial: %w", err)
	}
	return ToInput(w, i)
}

func loadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return FromRecords(records)
}

func loadXLSX(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%s has no sheets", path)
	}
	// Raw values: a cell formatted as "0.00" or "0%" must still read back
	// as the number it holds.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return FromRecords(rows)
}
