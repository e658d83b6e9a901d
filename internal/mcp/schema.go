package mcp

import (
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/nvandessel/gfcm/internal/fuzzy"
	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/metrics"
)

// GfcmSimulateInput defines the input for gfcm_simulate tool.
type GfcmSimulateInput struct {
	Concepts   []string   `json:"concepts" jsonschema:"Concept names in matrix order"`
	Weights    [][]string `json:"weights" jsonschema:"Square weight matrix; row i holds the weights feeding concept i. Cells like '0.5', '[0.1, 0.2, 0.3]' or '0.1 0.3'"`
	Initial    []string   `json:"initial" jsonschema:"Initial activation per concept, same cell syntax as weights"`
	Lambda     *float64   `json:"lambda,omitempty" jsonschema:"tanh steepness (default from config, usually 1.0)"`
	Iterations *int       `json:"iterations,omitempty" jsonschema:"Number of propagation steps (default from config, usually 15)"`
	Clamp      []string   `json:"clamp,omitempty" jsonschema:"Concepts held at their initial value; unknown names are ignored"`
	Save       bool       `json:"save,omitempty" jsonschema:"Record the run in the history store (default: false)"`
	Name       string     `json:"name,omitempty" jsonschema:"Optional label for the saved run"`
}

// GfcmSimulateOutput defines the output for gfcm_simulate tool.
type GfcmSimulateOutput struct {
	RunID       string         `json:"run_id,omitempty" jsonschema:"ID of the saved run, when save was requested"`
	Concepts    []string       `json:"concepts" jsonschema:"Concept names in state order"`
	Lambda      float64        `json:"lambda" jsonschema:"tanh steepness used"`
	Iterations  int            `json:"iterations" jsonschema:"Number of propagation steps run"`
	Clamped     []string       `json:"clamped,omitempty" jsonschema:"Concepts that were clamped"`
	Crisp       []gfcm.Vector  `json:"crisp" jsonschema:"Centroid of every concept at every iteration (iterations+1 rows)"`
	Final       []ConceptState `json:"final" jsonschema:"Fuzzy state after the last iteration"`
	ConvergedAt int            `json:"converged_at" jsonschema:"First iteration whose centroids moved less than the tolerance, or -1"`
	Converged   bool           `json:"converged" jsonschema:"Whether the centroids settled within the configured tolerance"`
}

// ConceptState is the fuzzy activation of one concept.
type ConceptState struct {
	Concept  string          `json:"concept"`
	Lo       fuzzy.JSONFloat `json:"lo"`
	Mid      fuzzy.JSONFloat `json:"mid"`
	Hi       fuzzy.JSONFloat `json:"hi"`
	Centroid fuzzy.JSONFloat `json:"centroid"`
}

// GfcmMetricsInput defines the input for gfcm_metrics tool.
type GfcmMetricsInput struct {
	Concepts []string   `json:"concepts" jsonschema:"Concept names in matrix order"`
	Weights  [][]string `json:"weights" jsonschema:"Square weight matrix; an edge exists wherever the weight's middle value is non-zero"`
}

// GfcmMetricsOutput defines the output for gfcm_metrics tool.
type GfcmMetricsOutput struct {
	Density            float64                  `json:"density" jsonschema:"Edges divided by n(n-1)"`
	AverageDegree      float64                  `json:"average_degree" jsonschema:"Mean of in-degree plus out-degree"`
	Edges              int                      `json:"edges" jsonschema:"Number of directed edges"`
	EigenvectorSkipped string                   `json:"eigenvector_skipped,omitempty" jsonschema:"Why eigenvector centrality was not computed, if it was not"`
	Concepts           []metrics.ConceptMetrics `json:"concepts" jsonschema:"Per-concept centrality indices; pagerank ignores edge weights and sums to 1"`
}

// GfcmGraphInput defines the input for gfcm_graph tool.
type GfcmGraphInput struct {
	Concepts []string   `json:"concepts" jsonschema:"Concept names in matrix order"`
	Weights  [][]string `json:"weights" jsonschema:"Square weight matrix"`
	Initial  []string   `json:"initial,omitempty" jsonschema:"Optional initial activation shown on the nodes"`
	Format   string     `json:"format,omitempty" jsonschema:"Output format: 'json' (default) or 'dot'"`
}

// GfcmGraphOutput defines the output for gfcm_graph tool.
type GfcmGraphOutput struct {
	Format    string      `json:"format" jsonschema:"Format of the rendered graph"`
	Graph     interface{} `json:"graph" jsonschema:"DOT source (string) or Cytoscape elements (object)"`
	NodeCount int         `json:"node_count" jsonschema:"Number of concepts"`
	EdgeCount int         `json:"edge_count" jsonschema:"Number of edges"`
}

// GfcmHistoryInput defines the input for gfcm_history tool.
type GfcmHistoryInput struct {
	ID    string `json:"id,omitempty" jsonschema:"Run ID to fetch in full; empty lists recent runs"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of runs to list (default: 20)"`
}

// GfcmHistoryOutput defines the output for gfcm_history tool.
type GfcmHistoryOutput struct {
	Runs  []RunItem  `json:"runs,omitempty" jsonschema:"Recorded runs, newest first"`
	Run   *RunDetail `json:"run,omitempty" jsonschema:"The requested run"`
	Count int        `json:"count" jsonschema:"Number of runs returned"`
}

// RunItem provides a list view of a recorded run.
type RunItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	Source     string  `json:"source,omitempty"`
	CreatedAt  string  `json:"created_at"`
	Lambda     float64 `json:"lambda"`
	Iterations int     `json:"iterations"`
	Concepts   int     `json:"concepts"`
}

// RunDetail is the full trace of a recorded run.
type RunDetail struct {
	Summary  RunItem        `json:"summary"`
	Concepts []string       `json:"concepts"`
	Clamped  []string       `json:"clamped,omitempty"`
	Crisp    []gfcm.Vector  `json:"crisp"`
	Final    []ConceptState `json:"final"`
}

// numberSchema accepts a JSON number or one of "NaN", "Infinity" and
// "-Infinity", the form fuzzy.JSONFloat takes for non-finite values.
func numberSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Enum: []any{"NaN", "Infinity", "-Infinity"}},
		},
	}
}

// outputSchema infers the output schema of a tool result type, describing
// fuzzy.JSONFloat and gfcm.Vector by their wire form rather than their Go
// kind.
func outputSchema[T any]() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[T](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[fuzzy.JSONFloat](): numberSchema(),
			reflect.TypeFor[gfcm.Vector](): {
				Types: []string{"null", "array"},
				Items: numberSchema(),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("output schema: %w", err)
	}
	return s, nil
}
