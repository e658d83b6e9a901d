// Package store records simulation runs. The engine never persists anything
// itself; the CLI and MCP server save runs here after they finish.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/gfcm/internal/gfcm"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded simulation.
type Run struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Source     string       `json:"source,omitempty"` // input files or tool that produced the run
	CreatedAt  time.Time    `json:"created_at"`
	Lambda     float64      `json:"lambda"`
	Iterations int          `json:"iterations"`
	Clamped    []string     `json:"clamped,omitempty"`
	Concepts   []string     `json:"concepts"`
	Crisp      []gfcm.Vector `json:"crisp"`
	Fuzzy      []gfcm.State `json:"fuzzy"`
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Lambda     float64   `json:"lambda"`
	Iterations int       `json:"iterations"`
	Concepts   int       `json:"concepts"`
}

// RunStore defines the interface for run history storage.
type RunStore interface {
	// SaveRun stores run, assigning an ID and timestamp when they are empty.
	// Saving an existing ID replaces that run.
	SaveRun(ctx context.Context, run Run) (string, error)

	// GetRun returns ErrRunNotFound for unknown IDs.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns summaries newest first. limit <= 0 means all runs.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	DeleteRun(ctx context.Context, id string) error
	Close() error
}

// NewRunID returns a random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RunFromTrace captures a finished trace.
func RunFromTrace(name, source string, tr *gfcm.Trace) Run {
	return Run{
		Name:       name,
		Source:     source,
		Lambda:     tr.Lambda,
		Iterations: tr.Iterations,
		Clamped:    tr.Clamped,
		Concepts:   tr.Concepts,
		Crisp:      tr.Crisp,
		Fuzzy:      tr.Fuzzy,
	}
}

// Trace rebuilds the simulation trace of a recorded run.
func (r *Run) Trace() *gfcm.Trace {
	return &gfcm.Trace{
		Concepts:   r.Concepts,
		Fuzzy:      r.Fuzzy,
		Crisp:      r.Crisp,
		Lambda:     r.Lambda,
		Iterations: r.Iterations,
		Clamped:    r.Clamped,
	}
}

// Summary returns the listing view of r.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:         r.ID,
		Name:       r.Name,
		Source:     r.Source,
		CreatedAt:  r.CreatedAt,
		Lambda:     r.Lambda,
		Iterations: r.Iterations,
		Concepts:   len(r.Concepts),
	}
}

// prepare fills in the ID and creation time of a run about to be saved.
func prepare(run Run) Run {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return run
}
