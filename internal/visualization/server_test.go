package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
)

// setupTrace simulates the setupGraph map for a few steps.
func setupTrace(t *testing.T) *gfcm.Trace {
	t.Helper()
	concepts := []string{"Demand", "Price"}
	tr, err := gfcm.Simulate(gfcm.Input{
		Concepts: concepts,
		Weights: [][]fuzzy.Cell{
			{fuzzy.TextCell(""), fuzzy.TextCell("0.2,0.4,0.6")},
			{fuzzy.TextCell("-0.5,-0.3,-0.1"), fuzzy.TextCell("")},
		},
		Initial: []fuzzy.Cell{fuzzy.TextCell("1"), fuzzy.TextCell("0,0.5,1")},
	}, gfcm.Config{Lambda: 1, Iterations: 3})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return tr
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, body
}

func TestServer_ServesHTML(t *testing.T) {
	g, initial := setupGraph(t)
	ts := httptest.NewServer(NewServer(g, initial, setupTrace(t)).Handler())
	defer ts.Close()

	resp, body := get(t, ts, "/")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	for _, want := range []string{"2 concepts, 2 edges", "<td>Demand</td>", "/chart.png", "digraph gfcm"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}

	resp, _ = get(t, ts, "/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /missing status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_GraphOnly(t *testing.T) {
	g, _ := setupGraph(t)
	ts := httptest.NewServer(NewServer(g, nil, nil).Handler())
	defer ts.Close()

	_, body := get(t, ts, "/")
	if strings.Contains(string(body), "/chart.png") {
		t.Error("chart linked without a trace")
	}

	for _, path := range []string{"/api/trace", "/api/triangles", "/chart.png"} {
		resp, _ := get(t, ts, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestServer_APIEndpoints(t *testing.T) {
	g, initial := setupGraph(t)
	tr := setupTrace(t)
	ts := httptest.NewServer(NewServer(g, initial, tr).Handler())
	defer ts.Close()

	resp, body := get(t, ts, "/api/graph")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("graph Content-Type = %q", ct)
	}
	var graph map[string]interface{}
	if err := json.Unmarshal(body, &graph); err != nil {
		t.Fatalf("graph JSON: %v", err)
	}
	if graph["node_count"] != float64(2) {
		t.Errorf("node_count = %v, want 2", graph["node_count"])
	}

	_, body = get(t, ts, "/api/trace")
	var got gfcm.Trace
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("trace JSON: %v", err)
	}
	if len(got.Crisp) != 4 || got.Iterations != 3 {
		t.Errorf("trace has %d states, %d iterations", len(got.Crisp), got.Iterations)
	}

	_, body = get(t, ts, "/api/triangles?concept=Price")
	var series []TriangleSeries
	if err := json.Unmarshal(body, &series); err != nil {
		t.Fatalf("triangles JSON: %v", err)
	}
	if len(series) != 1 || series[0].Concept != "Price" || len(series[0].Triangles) != 4 {
		t.Errorf("triangles = %+v", series)
	}

	resp, body = get(t, ts, "/chart.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chart status = %d: %s", resp.StatusCode, body)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("chart is not a PNG")
	}

	resp, _ = get(t, ts, "/chart.png?concept=Nope")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown concept chart status = %d, want 422", resp.StatusCode)
	}
}

func TestServer_ListenAndServe(t *testing.T) {
	g, initial := setupGraph(t)
	srv := NewServer(g, initial, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	waitForServer(t, srv, 2*time.Second)

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe returned %v, want nil on shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// waitForServer polls until the server responds or the timeout elapses.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}

func TestServer_NonFiniteValues(t *testing.T) {
	concepts := []string{"A", "B"}
	weights := [][]fuzzy.Cell{
		{fuzzy.TextCell(""), fuzzy.TextCell("nan")},
		{fuzzy.TextCell("0.5"), fuzzy.TextCell("")},
	}
	initial := []fuzzy.Cell{fuzzy.TextCell("nan"), fuzzy.TextCell("0")}
	tr, err := gfcm.Simulate(gfcm.Input{Concepts: concepts, Weights: weights, Initial: initial},
		gfcm.Config{Lambda: 1, Iterations: 2})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	w, err := gfcm.BuildWeights(concepts, weights)
	if err != nil {
		t.Fatalf("build weights: %v", err)
	}

	ts := httptest.NewServer(NewServer(metrics.BuildGraph(w), tr.Fuzzy[0], tr).Handler())
	defer ts.Close()

	resp, body := get(t, ts, "/api/graph")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"weight":"NaN"`) {
		t.Errorf("graph status = %d, body = %s", resp.StatusCode, body)
	}

	resp, body = get(t, ts, "/api/trace")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trace status = %d: %s", resp.StatusCode, body)
	}
	var got gfcm.Trace
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("trace JSON: %v", err)
	}
	if len(got.Crisp) != 3 || !math.IsNaN(got.Crisp[0][0]) || got.Crisp[0][1] != 0 {
		t.Errorf("trace crisp = %v", got.Crisp)
	}

	resp, body = get(t, ts, "/api/triangles?concept=A")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("triangles status = %d: %s", resp.StatusCode, body)
	}
	var series []TriangleSeries
	if err := json.Unmarshal(body, &series); err != nil {
		t.Fatalf("triangles JSON: %v", err)
	}
	if len(series) != 1 || !math.IsNaN(float64(series[0].Triangles[0].Centroid.X)) {
		t.Errorf("triangles = %+v", series)
	}
}

func TestWriteJSON_EncodeError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, math.Inf(1))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q after a failed encode", ct)
	}
}
