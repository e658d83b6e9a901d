package mapfile

import (
	"errors"
	"testing"

	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/table"
)

const cytoscapeDoc = `{
  "elements": {
    "nodes": [
      {"data": {"id": "n1", "label": "Demand", "tfn": "0.5,0.6,0.7"}},
      {"data": {"id": "n2", "label": "Price"}},
      {"data": {"id": "n3", "tfn": [0.1, 0.2, 0.3]}}
    ],
    "edges": [
      {"data": {"source": "n1", "target": "n2", "tfn": "0.2,0.4,0.6"}},
      {"data": {"source": "n2", "target": "n3", "tfn": "-0.5,-0.3,-0.1"}},
      {"data": {"source": "n2", "target": "ghost", "tfn": "1,1,1"}}
    ]
  }
}`

func TestNormalise_Layouts(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantNodes int
		wantEdges int
	}{
		{"elements wrapper", cytoscapeDoc, 3, 3},
		{"top-level nodes and edges", `{"nodes":[{"id":"a"},{"data":{"id":"b"}}],"edges":[{"source":"a","target":"b"}]}`, 2, 1},
		{"flat list", `[{"group":"nodes","data":{"id":"a"}},{"group":"edges","data":{"source":"a","target":"a"}}]`, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elems, err := Normalise([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Normalise: %v", err)
			}
			nodes, edges := Split(elems)
			if len(nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(nodes), tt.wantNodes)
			}
			if len(edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(edges), tt.wantEdges)
			}
		})
	}
}

func TestNormalise_Unrecognised(t *testing.T) {
	for _, doc := range []string{`{}`, `{"nodes": []}`, `[]`, `"text"`, `{"elements": {}}`} {
		t.Run(doc, func(t *testing.T) {
			_, err := Normalise([]byte(doc))
			if !errors.Is(err, ErrUnrecognised) {
				t.Errorf("err = %v, want ErrUnrecognised", err)
			}
		})
	}

	if _, err := Normalise([]byte(`{not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestSplit_Defaults(t *testing.T) {
	elems, err := Normalise([]byte(cytoscapeDoc))
	if err != nil {
		t.Fatalf("Normalise: %v", err)
	}
	nodes, _ := Split(elems)

	if nodes[1].TFN != DefaultTFN {
		t.Errorf("missing tfn = %q, want default", nodes[1].TFN)
	}
	if nodes[2].Label != "n3" {
		t.Errorf("missing label = %q, want id n3", nodes[2].Label)
	}
	if nodes[2].TFN != "0.1,0.2,0.3" {
		t.Errorf("array tfn = %q", nodes[2].TFN)
	}
}

func TestToTables(t *testing.T) {
	w, i, err := Parse([]byte(cytoscapeDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantLabels := []string{"Demand", "Price", "n3"}
	for k, l := range wantLabels {
		if w.RowLabels[k] != l || w.ColLabels[k] != l || i.ColLabels[k] != l {
			t.Errorf("label %d: rows=%q cols=%q init=%q, want %q", k, w.RowLabels[k], w.ColLabels[k], i.ColLabels[k], l)
		}
	}

	if got := w.Cells[0][1]; got != "[0.2,0.4,0.6]" {
		t.Errorf("Demand->Price = %q", got)
	}
	if got := w.Cells[1][2]; got != "[-0.5,-0.3,-0.1]" {
		t.Errorf("Price->n3 = %q", got)
	}
	if got := w.Cells[2][0]; got != "[0.0,0.0,0.0]" {
		t.Errorf("empty cell = %q", got)
	}
	if got := i.Cells[0][0]; got != "[0.5,0.6,0.7]" {
		t.Errorf("initial Demand = %q", got)
	}
	if len(i.RowLabels) != 1 {
		t.Errorf("initial rows = %d, want 1", len(i.RowLabels))
	}
}

func TestToTables_FeedsSimulation(t *testing.T) {
	w, i, err := Parse([]byte(cytoscapeDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	in, err := table.ToInput(w, i)
	if err != nil {
		t.Fatalf("ToInput: %v", err)
	}
	tr, err := gfcm.Simulate(in, gfcm.DefaultConfig())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(tr.Fuzzy) != gfcm.DefaultConfig().Iterations+1 {
		t.Errorf("len(Fuzzy) = %d", len(tr.Fuzzy))
	}
}

func TestToTables_NoNodes(t *testing.T) {
	_, _, err := ToTables([]Element{{Group: GroupEdges, Data: map[string]any{"source": "a"}}})
	if !errors.Is(err, ErrUnrecognised) {
		t.Errorf("err = %v, want ErrUnrecognised", err)
	}
}
