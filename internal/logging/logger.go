// Package logging provides leveled logging and step tracing for gfcm.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A StepLogger for structured JSONL run traces (.gfcm/steps.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/gfcm/internal/gfcm"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level, step events carry the fuzzy state as well as the centroids.
const LevelTrace = slog.LevelDebug - 4

// StepsFile is the name of the JSONL step trace inside the state directory.
const StepsFile = "steps.jsonl"

// Levels lists the accepted level names.
var Levels = []string{"info", "debug", "trace"}

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names one of Levels.
func ValidLevel(s string) bool {
	for _, l := range Levels {
		if strings.EqualFold(s, l) {
			return true
		}
	}
	return false
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// StepLogger writes structured simulation events to a JSONL file.
// It is safe for concurrent use. A nil StepLogger is safe to use;
// all methods are no-ops on nil receiver.
type StepLogger struct {
	mu    sync.Mutex
	file  *os.File
	fuzzy bool // include fuzzy states in step events
}

// NewStepLogger creates a step logger writing to dir/steps.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewStepLogger(dir string, level string) *StepLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, StepsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &StepLogger{file: f, fuzzy: lvl <= LevelTrace}
}

// Log writes an event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (sl *StepLogger) Log(event map[string]any) {
	if sl == nil || sl.file == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = sl.file.Write(data)
}

// LogTrace writes run_started, one step event per iteration and run_finished
// for a completed run. runID ties the events of one run together.
func (sl *StepLogger) LogTrace(runID string, tr *gfcm.Trace) {
	if sl == nil || sl.file == nil {
		return
	}

	sl.Log(map[string]any{
		"event":      "run_started",
		"run_id":     runID,
		"concepts":   tr.Concepts,
		"lambda":     tr.Lambda,
		"iterations": tr.Iterations,
		"clamped":    tr.Clamped,
	})
	for t := range tr.Crisp {
		ev := map[string]any{
			"event":     "step",
			"run_id":    runID,
			"iteration": t,
			"crisp":     tr.Crisp[t],
		}
		if sl.fuzzy {
			ev["fuzzy"] = tr.Fuzzy[t]
		}
		sl.Log(ev)
	}
	sl.Log(map[string]any{
		"event":  "run_finished",
		"run_id": runID,
		"final":  tr.Crisp[len(tr.Crisp)-1],
	})
}

// Close closes the underlying file. Safe to call on nil receiver.
func (sl *StepLogger) Close() {
	if sl == nil || sl.file == nil {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.file.Close()
	sl.file = nil
}
