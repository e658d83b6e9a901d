package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
	"github.com/nvandessel/gfcm/internal/ratelimit"
	"github.com/nvandessel/gfcm/internal/store"
	"github.com/nvandessel/gfcm/internal/table"
	"github.com/nvandessel/gfcm/internal/visualization"
)

// defaultHistoryLimit caps gfcm_history listings and the recent-runs resource.
const defaultHistoryLimit = 20

const (
	recentRunsURI   = "gfcm://runs/recent"
	runURIPrefix    = "gfcm://runs/"
	runURITemplate  = "gfcm://runs/{id}"
	mcpSourcePrefix = "mcp:"
)

// registerTools registers all gfcm tools with the MCP server.
func (s *Server) registerTools() error {
	simulateSchema, err := outputSchema[GfcmSimulateOutput]()
	if err != nil {
		return err
	}
	historySchema, err := outputSchema[GfcmHistoryOutput]()
	if err != nil {
		return err
	}

	sdk.AddTool(s.server, &sdk.Tool{
		Name:         "gfcm_simulate",
		Description:  "Run a fuzzy cognitive map simulation from an inline weight matrix and initial state",
		OutputSchema: simulateSchema,
	}, s.handleGfcmSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gfcm_metrics",
		Description: "Compute graph centrality metrics for a weight matrix",
	}, s.handleGfcmMetrics)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gfcm_graph",
		Description: "Render a weight matrix as a graph (json for Cytoscape, dot for Graphviz)",
	}, s.handleGfcmGraph)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:         "gfcm_history",
		Description:  "List recorded simulation runs or fetch one run by ID",
		OutputSchema: historySchema,
	}, s.handleGfcmHistory)

	return nil
}

// registerResources registers read-only views of the run history.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         recentRunsURI,
		Name:        "gfcm-recent-runs",
		Description: "The most recent recorded simulation runs.",
		MIMEType:    "text/markdown",
	}, s.handleRecentRunsResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURITemplate,
		Name:        "gfcm-run",
		Description: "Full trace of one recorded simulation run.",
		MIMEType:    "application/json",
	}, s.handleRunResource)

	return nil
}

// handleGfcmSimulate implements the gfcm_simulate tool.
func (s *Server) handleGfcmSimulate(ctx context.Context, req *sdk.CallToolRequest, args GfcmSimulateInput) (_ *sdk.CallToolResult, _ GfcmSimulateOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool("gfcm_simulate", start, retErr, runID, sanitizeToolParams(map[string]interface{}{
			"concepts":   args.Concepts,
			"clamp":      args.Clamp,
			"lambda":     derefOr(args.Lambda, s.config.Simulation.Lambda),
			"iterations": derefOr(args.Iterations, s.config.Simulation.Iterations),
			"save":       args.Save,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "gfcm_simulate"); err != nil {
		return nil, GfcmSimulateOutput{}, err
	}

	if err := s.checkConcepts(args.Concepts); err != nil {
		return nil, GfcmSimulateOutput{}, err
	}

	cfg := s.config.SimulationDefaults()
	cfg.Lambda = derefOr(args.Lambda, cfg.Lambda)
	cfg.Iterations = derefOr(args.Iterations, cfg.Iterations)
	cfg.Clamp = args.Clamp
	if cfg.Iterations > s.config.MCP.MaxIterations {
		return nil, GfcmSimulateOutput{}, fmt.Errorf("iterations %d exceeds the limit of %d (mcp.max_iterations)",
			cfg.Iterations, s.config.MCP.MaxIterations)
	}

	in, err := inlineInput(args.Concepts, args.Weights, args.Initial)
	if err != nil {
		return nil, GfcmSimulateOutput{}, err
	}

	tr, err := gfcm.Simulate(in, cfg)
	if err != nil {
		return nil, GfcmSimulateOutput{}, fmt.Errorf("simulate: %w", err)
	}

	if args.Save {
		run := store.RunFromTrace(args.Name, mcpSourcePrefix+"gfcm_simulate", tr)
		id, err := s.runs.SaveRun(ctx, run)
		if err != nil {
			return nil, GfcmSimulateOutput{}, fmt.Errorf("save run: %w", err)
		}
		runID = id
	}

	traceID := runID
	if traceID == "" {
		traceID = store.NewRunID()
	}
	s.stepLogger.LogTrace(traceID, tr)

	convergedAt, converged := tr.Converged(s.config.Simulation.ConvergenceTolerance)
	if !converged {
		convergedAt = -1
	}
	s.logger.Debug("simulation finished",
		"concepts", len(tr.Concepts), "lambda", tr.Lambda, "iterations", tr.Iterations,
		"converged", converged, "run_id", runID)

	return nil, GfcmSimulateOutput{
		RunID:       runID,
		Concepts:    tr.Concepts,
		Lambda:      tr.Lambda,
		Iterations:  tr.Iterations,
		Clamped:     tr.Clamped,
		Crisp:       tr.Crisp,
		Final:       conceptStates(tr.Concepts, tr.Final()),
		ConvergedAt: convergedAt,
		Converged:   converged,
	}, nil
}

// handleGfcmMetrics implements the gfcm_metrics tool.
func (s *Server) handleGfcmMetrics(ctx context.Context, req *sdk.CallToolRequest, args GfcmMetricsInput) (_ *sdk.CallToolResult, _ GfcmMetricsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("gfcm_metrics", start, retErr, "", sanitizeToolParams(map[string]interface{}{
			"concepts": args.Concepts,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "gfcm_metrics"); err != nil {
		return nil, GfcmMetricsOutput{}, err
	}
	if err := s.checkConcepts(args.Concepts); err != nil {
		return nil, GfcmMetricsOutput{}, err
	}

	w, err := inlineWeights(args.Concepts, args.Weights)
	if err != nil {
		return nil, GfcmMetricsOutput{}, err
	}

	report := metrics.Compute(metrics.BuildGraph(w), s.config.PageRank())
	return nil, GfcmMetricsOutput{
		Density:            report.Density,
		AverageDegree:      report.AverageDegree,
		Edges:              report.Edges,
		EigenvectorSkipped: report.EigenvectorSkipped,
		Concepts:           report.Concepts,
	}, nil
}

// handleGfcmGraph implements the gfcm_graph tool.
func (s *Server) handleGfcmGraph(ctx context.Context, req *sdk.CallToolRequest, args GfcmGraphInput) (_ *sdk.CallToolResult, _ GfcmGraphOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("gfcm_graph", start, retErr, "", sanitizeToolParams(map[string]interface{}{
			"concepts": args.Concepts,
			"format":   args.Format,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "gfcm_graph"); err != nil {
		return nil, GfcmGraphOutput{}, err
	}
	if err := s.checkConcepts(args.Concepts); err != nil {
		return nil, GfcmGraphOutput{}, err
	}

	format := args.Format
	if format == "" {
		format = string(visualization.FormatJSON)
	}
	f, err := visualization.ParseFormat(format)
	if err != nil {
		return nil, GfcmGraphOutput{}, err
	}

	w, err := inlineWeights(args.Concepts, args.Weights)
	if err != nil {
		return nil, GfcmGraphOutput{}, err
	}

	var initial gfcm.State
	if len(args.Initial) > 0 {
		initial, err = gfcm.BuildState(args.Concepts, textCells(args.Initial))
		if err != nil {
			return nil, GfcmGraphOutput{}, fmt.Errorf("initial state: %w", err)
		}
	}

	g := metrics.BuildGraph(w)
	out := GfcmGraphOutput{
		Format:    string(f),
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}
	switch f {
	case visualization.FormatDOT:
		out.Graph = visualization.RenderDOT(g, initial)
	default:
		out.Graph = visualization.RenderJSON(g, initial)
	}
	return nil, out, nil
}

// handleGfcmHistory implements the gfcm_history tool.
func (s *Server) handleGfcmHistory(ctx context.Context, req *sdk.CallToolRequest, args GfcmHistoryInput) (_ *sdk.CallToolResult, _ GfcmHistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("gfcm_history", start, retErr, args.ID, sanitizeToolParams(map[string]interface{}{
			"limit": args.Limit,
		}))
	}()

	if args.ID != "" {
		run, err := s.runs.GetRun(ctx, args.ID)
		if err != nil {
			return nil, GfcmHistoryOutput{}, fmt.Errorf("get run %s: %w", args.ID, err)
		}
		return nil, GfcmHistoryOutput{Run: runDetail(run), Count: 1}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, GfcmHistoryOutput{}, fmt.Errorf("list runs: %w", err)
	}
	items := make([]RunItem, len(runs))
	for i, r := range runs {
		items[i] = runItem(r)
	}
	return nil, GfcmHistoryOutput{Runs: items, Count: len(items)}, nil
}

// handleRecentRunsResource lists recent runs as markdown.
func (s *Server) handleRecentRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.runs.ListRuns(ctx, defaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Recent GFCM Runs\n\n")
	if len(runs) == 0 {
		b.WriteString("No runs recorded yet. Run `gfcm_simulate` with `save: true` to record one.\n")
	}
	for _, r := range runs {
		name := r.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&b, "- `%s` %s: %d concepts, lambda=%g, %d iterations (%s)\n",
			r.ID, name, r.Concepts, r.Lambda, r.Iterations, r.CreatedAt.Format(time.RFC3339))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      recentRunsURI,
				MIMEType: "text/markdown",
				Text:     b.String(),
			},
		},
	}, nil
}

// handleRunResource returns one recorded run as JSON.
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, runURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}

	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// checkConcepts rejects tables larger than mcp.max_concepts.
func (s *Server) checkConcepts(concepts []string) error {
	if n := len(concepts); n > s.config.MCP.MaxConcepts {
		return fmt.Errorf("%d concepts exceeds the limit of %d (mcp.max_concepts)", n, s.config.MCP.MaxConcepts)
	}
	return nil
}

// inlineInput validates tool-supplied matrices the same way tabular files
// are validated and returns the simulation input.
func inlineInput(concepts []string, weights [][]string, initial []string) (gfcm.Input, error) {
	w := table.Table{RowLabels: concepts, ColLabels: concepts, Cells: weights}
	i := table.Table{RowLabels: []string{"initial"}, ColLabels: concepts, Cells: [][]string{initial}}
	return table.ToInput(w, i)
}

// inlineWeights parses a tool-supplied weight matrix.
func inlineWeights(concepts []string, weights [][]string) (*gfcm.WeightMatrix, error) {
	if len(concepts) == 0 {
		return nil, fmt.Errorf("no concepts given")
	}
	cells := make([][]fuzzy.Cell, len(weights))
	for r, row := range weights {
		cells[r] = textCells(row)
	}
	w, err := gfcm.BuildWeights(concepts, cells)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	return w, nil
}

func textCells(row []string) []fuzzy.Cell {
	cells := make([]fuzzy.Cell, len(row))
	for i, s := range row {
		cells[i] = fuzzy.TextCell(s)
	}
	return cells
}

func conceptStates(concepts []string, state gfcm.State) []ConceptState {
	out := make([]ConceptState, len(concepts))
	for i, name := range concepts {
		t := state[i]
		out[i] = ConceptState{
			Concept:  name,
			Lo:       fuzzy.JSONFloat(t.Lo),
			Mid:      fuzzy.JSONFloat(t.Mid),
			Hi:       fuzzy.JSONFloat(t.Hi),
			Centroid: fuzzy.JSONFloat(fuzzy.Defuzzify(t)),
		}
	}
	return out
}

func runItem(r store.RunSummary) RunItem {
	return RunItem{
		ID:         r.ID,
		Name:       r.Name,
		Source:     r.Source,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		Lambda:     r.Lambda,
		Iterations: r.Iterations,
		Concepts:   r.Concepts,
	}
}

func runDetail(r *store.Run) *RunDetail {
	d := &RunDetail{
		Summary:  runItem(r.Summary()),
		Concepts: r.Concepts,
		Clamped:  r.Clamped,
		Crisp:    r.Crisp,
	}
	if len(r.Fuzzy) > 0 {
		d.Final = conceptStates(r.Concepts, r.Trace().Final())
	}
	return d
}

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
