package table

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/xuri/excelize/v2"
)

// writeFile is a test helper that writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const weightsCSV = `,A,B,C
A,,0.5,"[0.1, 0.2, 0.3]"
B,"[-0.4, 0.2]",,0
C,0.25,"(0.3 0.4 0.5)",
`

func TestLoad_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "w.csv", weightsCSV)

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := tbl.RowLabels; len(got) != 3 || got[0] != "A" || got[2] != "C" {
		t.Errorf("RowLabels = %v", got)
	}
	if got := tbl.ColLabels; len(got) != 3 || got[1] != "B" {
		t.Errorf("ColLabels = %v", got)
	}
	if tbl.Cells[0][2] != "[0.1, 0.2, 0.3]" {
		t.Errorf("Cells[0][2] = %q", tbl.Cells[0][2])
	}
	if tbl.Cells[2][2] != "" {
		t.Errorf("Cells[2][2] = %q, want empty", tbl.Cells[2][2])
	}
}

func TestLoad_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"", "A", "B"},
		{"A", "", "[0.1, 0.5]"},
		{"B", 0.75, ""},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.RowLabels) != 2 || tbl.RowLabels[1] != "B" {
		t.Fatalf("RowLabels = %v", tbl.RowLabels)
	}
	if tbl.Cells[0][1] != "[0.1, 0.5]" {
		t.Errorf("Cells[0][1] = %q", tbl.Cells[0][1])
	}
	if tbl.Cells[1][0] != "0.75" {
		t.Errorf("Cells[1][0] = %q, want 0.75", tbl.Cells[1][0])
	}
	// trailing empty cell on row B is padded back
	if len(tbl.Cells[1]) != 2 {
		t.Errorf("row B has %d cells, want 2", len(tbl.Cells[1]))
	}
}

func TestLoad_XLSXIgnoresNumberFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styled.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"", "A", "B"},
		{"A", "", 0.5},
		{"B", 0.123456789, ""},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	twoPlaces, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "C2", "C2", percent); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "B3", "B3", twoPlaces); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	if shown, _ := f.GetCellValue("Sheet1", "B3"); shown != "0.12" {
		t.Fatalf("formatted B3 = %q, want 0.12", shown)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Cells[0][1] != "0.5" {
		t.Errorf("percent cell = %q, want 0.5", tbl.Cells[0][1])
	}
	if tbl.Cells[1][0] != "0.123456789" {
		t.Errorf("two-place cell = %q, want 0.123456789", tbl.Cells[1][0])
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load("matrix.json")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromRecords_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
	}{
		{"empty", nil},
		{"header too short", [][]string{{""}}},
		{"row too long", [][]string{{"", "A"}, {"A", "1", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromRecords(tt.records); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecords_RoundTrip(t *testing.T) {
	in := [][]string{{"", "A", "B"}, {"A", "", "0.5"}, {"B", "0.1", ""}}
	tbl, err := FromRecords(in)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	out := tbl.Records()
	if len(out) != len(in) {
		t.Fatalf("got %d records, want %d", len(out), len(in))
	}
	for r := range in {
		for c := range in[r] {
			if out[r][c] != in[r][c] {
				t.Errorf("record[%d][%d] = %q, want %q", r, c, out[r][c], in[r][c])
			}
		}
	}
}

func TestToInput(t *testing.T) {
	w, _ := FromRecords([][]string{{"", "A", "B"}, {"A", "", "0.5"}, {"B", "0.5", ""}})
	i, _ := FromRecords([][]string{{"", "A", "B"}, {"", "1.0", "0.0"}})

	in, err := ToInput(w, i)
	if err != nil {
		t.Fatalf("ToInput: %v", err)
	}
	if len(in.Concepts) != 2 || in.Concepts[0] != "A" {
		t.Fatalf("Concepts = %v", in.Concepts)
	}

	tr, err := gfcm.Simulate(in, gfcm.Config{Lambda: 1, Iterations: 1})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if tr.Crisp[0][0] != 1 || tr.Crisp[0][1] != 0 {
		t.Errorf("initial crisp = %v, want [1 0]", tr.Crisp[0])
	}
}

func TestToInput_TransposesColumnInitial(t *testing.T) {
	w, _ := FromRecords([][]string{{"", "A", "B"}, {"A", "", "0.5"}, {"B", "0.5", ""}})
	i, _ := FromRecords([][]string{{"", "I"}, {"A", "[0.1, 0.2, 0.3]"}, {"B", "0.4"}})

	in, err := ToInput(w, i)
	if err != nil {
		t.Fatalf("ToInput: %v", err)
	}
	got, err := fuzzy.ParseInterval(in.Initial[0])
	if err != nil {
		t.Fatalf("ParseInterval: %v", err)
	}
	if got != (fuzzy.TFN{Lo: 0.1, Mid: 0.2, Hi: 0.3}) {
		t.Errorf("initial A = %v", got)
	}
}

func TestToInput_ShapeErrors(t *testing.T) {
	square, _ := FromRecords([][]string{{"", "A", "B"}, {"A", "", "0.5"}, {"B", "0.5", ""}})
	goodInit, _ := FromRecords([][]string{{"", "A", "B"}, {"", "1", "0"}})

	tests := []struct {
		name    string
		w, i    Table
		table   string
		isShape bool
	}{
		{
			name:    "columns reordered",
			w:       mustRecords(t, [][]string{{"", "B", "A"}, {"A", "", "0.5"}, {"B", "0.5", ""}}),
			i:       goodInit,
			table:   "weights",
			isShape: true,
		},
		{
			name:    "not square",
			w:       mustRecords(t, [][]string{{"", "A", "B", "C"}, {"A", "", "0.5", "0"}, {"B", "0.5", "", "0"}}),
			i:       goodInit,
			table:   "weights",
			isShape: true,
		},
		{
			name:    "initial labels differ",
			w:       square,
			i:       mustRecords(t, [][]string{{"", "A", "X"}, {"", "1", "0"}}),
			table:   "initial",
			isShape: true,
		},
		{
			name: "initial without rows",
			w:    square,
			i:    Table{ColLabels: []string{"A", "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToInput(tt.w, tt.i)
			if err == nil {
				t.Fatal("expected error")
			}
			var se *ShapeError
			if errors.As(err, &se) != tt.isShape {
				t.Fatalf("errors.As(*ShapeError) = %v, want %v (err: %v)", !tt.isShape, tt.isShape, err)
			}
			if tt.isShape && se.Table != tt.table {
				t.Errorf("ShapeError.Table = %q, want %q", se.Table, tt.table)
			}
		})
	}
}

func TestWeightCells(t *testing.T) {
	w := mustRecords(t, [][]string{{"", "A", "B"}, {"A", "", "[0.1, 0.2, 0.3]"}, {"B", "0.5", ""}})

	concepts, cells, err := WeightCells(w)
	if err != nil {
		t.Fatalf("WeightCells() error = %v", err)
	}
	if len(concepts) != 2 || concepts[0] != "A" || concepts[1] != "B" {
		t.Errorf("concepts = %v, want [A B]", concepts)
	}
	if got := cells[0][1].String(); got != "[0.1, 0.2, 0.3]" {
		t.Errorf("cells[0][1] = %q", got)
	}

	if _, _, err := WeightCells(Table{}); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()
	wPath := writeFile(t, dir, "w.csv", weightsCSV)
	iPath := writeFile(t, dir, "i.csv", ",A,B,C\n,1,0,\"[0, 0.5]\"\n")

	in, err := LoadInput(wPath, iPath)
	if err != nil {
		t.Fatalf("LoadInput: %v", err)
	}
	tr, err := gfcm.Simulate(in, gfcm.Config{Lambda: 1, Iterations: 3})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(tr.Crisp) != 4 {
		t.Errorf("len(Crisp) = %d, want 4", len(tr.Crisp))
	}
}

func mustRecords(t *testing.T, records [][]string) Table {
	t.Helper()
	tbl, err := FromRecords(records)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return tbl
}
