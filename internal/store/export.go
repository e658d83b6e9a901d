package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSONL writes every run of s to w, one JSON object per line, oldest first.
func ExportJSONL(ctx context.Context, s RunStore, w io.Writer) (int, error) {
	summaries, err := s.ListRuns(ctx, 0)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	count := 0
	for i := len(summaries) - 1; i >= 0; i-- {
		run, err := s.GetRun(ctx, summaries[i].ID)
		if err != nil {
			return count, fmt.Errorf("failed to load run %s: %w", summaries[i].ID, err)
		}
		if err := enc.Encode(run); err != nil {
			return count, fmt.Errorf("failed to encode run %s: %w", run.ID, err)
		}
		count++
	}
	return count, nil
}

// ImportJSONL reads runs written by ExportJSONL into s. Runs keep their IDs,
// so importing the same file twice replaces rather than duplicates.
func ImportJSONL(ctx context.Context, s RunStore, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	// Traces of large maps make long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	lineNum, count := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var run Run
		if err := json.Unmarshal(line, &run); err != nil {
			return count, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		if _, err := s.SaveRun(ctx, run); err != nil {
			return count, fmt.Errorf("failed to import run %s: %w", run.ID, err)
		}
		count++
	}

	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("scanner error: %w", err)
	}
	return count, nil
}
