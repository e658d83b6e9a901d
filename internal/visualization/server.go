package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/gfcm/internal/chart"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
)

// Server serves an HTML view of a concept graph and, when a trace is
// attached, its centroid chart and triangle evolution.
type Server struct {
	graph      *metrics.Graph
	initial    gfcm.State
	trace      *gfcm.Trace
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new graph visualization server. initial and tr may be nil.
func NewServer(g *metrics.Graph, initial gfcm.State, tr *gfcm.Trace) *Server {
	return &Server{
		graph:   g,
		initial: initial,
		trace:   tr,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/trace", s.handleTrace)
	mux.HandleFunc("/api/triangles", s.handleTriangles)
	mux.HandleFunc("/chart.png", s.handleChart)
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Let the OS pick a free port.
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// indexRow is one concept row of the index page.
type indexRow struct {
	Concept   string
	In, Out   int
	Initial   string
	Final     string
	Centroid  string
	HasValues bool
}

// indexData feeds templates/index.html.
type indexData struct {
	Nodes    int
	Edges    int
	Rows     []indexRow
	HasTrace bool
	Lambda   float64
	Steps    int
	DOT      string
}

// handleIndex serves the summary page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := indexData{
		Nodes:    len(s.graph.Nodes),
		Edges:    len(s.graph.Edges),
		HasTrace: s.trace != nil,
		DOT:      RenderDOT(s.graph, s.initial),
	}
	var final gfcm.State
	if s.trace != nil {
		data.Lambda = s.trace.Lambda
		data.Steps = s.trace.Iterations
		final = s.trace.Final()
	}
	for i, name := range s.graph.Nodes {
		row := indexRow{Concept: name, In: s.graph.InDegree(i), Out: s.graph.OutDegree(i)}
		if i < len(s.initial) {
			row.Initial = s.initial[i].String()
		}
		if i < len(final) {
			row.Final = final[i].String()
			row.Centroid = fmt.Sprintf("%.4f", s.trace.Crisp[len(s.trace.Crisp)-1][i])
			row.HasValues = true
		}
		data.Rows = append(data.Rows, row)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// handleGraph returns the Cytoscape JSON of the graph.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, RenderJSON(s.graph, s.initial))
}

// handleTrace returns the concepts with their fuzzy and crisp histories.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if s.trace == nil {
		http.Error(w, "no simulation trace", http.StatusNotFound)
		return
	}
	writeJSON(w, s.trace)
}

// handleTriangles returns the triangle evolution of the concepts named by
// repeated ?concept= parameters, or of every concept.
func (s *Server) handleTriangles(w http.ResponseWriter, r *http.Request) {
	if s.trace == nil {
		http.Error(w, "no simulation trace", http.StatusNotFound)
		return
	}
	writeJSON(w, TriangleEvolution(s.trace, r.URL.Query()["concept"]))
}

// handleChart renders the centroid chart of every concept.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if s.trace == nil {
		http.Error(w, "no simulation trace", http.StatusNotFound)
		return
	}
	concepts := r.URL.Query()["concept"]
	if len(concepts) == 0 {
		concepts = s.trace.Concepts
	}
	w.Header().Set("Content-Type", "image/png")
	if err := chart.RenderCentroids(w, s.trace, concepts); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chart.ErrTooShort) || errors.Is(err, chart.ErrNoSeries) {
			status = http.StatusUnprocessableEntity
		}
		w.Header().Del("Content-Type")
		http.Error(w, err.Error(), status)
	}
}

// writeJSON encodes v before writing anything so an encoding failure still
// gets a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "encode error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}
