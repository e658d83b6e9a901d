package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is fixed-width so created_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore creates a new SQLiteRunStore rooted at projectRoot.
// The database lives at .gfcm/gfcm.db.
func NewSQLiteRunStore(projectRoot string) (*SQLiteRunStore, error) {
	dir := LocalGfcmPath(projectRoot)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .gfcm directory: %w", err)
	}

	dbPath := filepath.Join(dir, "gfcm.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun stores a run, replacing any run with the same ID.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run = prepare(run)

	concepts, err := json.Marshal(run.Concepts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal concepts: %w", err)
	}
	clamped, err := json.Marshal(run.Clamped)
	if err != nil {
		return "", fmt.Errorf("failed to marshal clamped: %w", err)
	}
	crisp, err := json.Marshal(run.Crisp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal crisp trace: %w", err)
	}
	fuzzy, err := json.Marshal(run.Fuzzy)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fuzzy trace: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, name, source, created_at, lambda, iterations, concept_count,
			concepts, clamped, crisp, fuzzy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Source, run.CreatedAt.UTC().Format(timeFormat),
		run.Lambda, run.Iterations, len(run.Concepts),
		string(concepts), string(clamped), string(crisp), string(fuzzy),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return run.ID, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		run                             Run
		name, source, clamped           sql.NullString
		createdAt, concepts, crisp, fzy string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, created_at, lambda, iterations, concepts, clamped, crisp, fuzzy
		FROM runs WHERE id = ?`, id).Scan(
		&run.ID, &name, &source, &createdAt, &run.Lambda, &run.Iterations,
		&concepts, &clamped, &crisp, &fzy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run.Name = name.String
	run.Source = source.String
	if run.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(concepts), &run.Concepts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal concepts: %w", err)
	}
	if clamped.Valid && clamped.String != "" {
		if err := json.Unmarshal([]byte(clamped.String), &run.Clamped); err != nil {
			return nil, fmt.Errorf("failed to unmarshal clamped: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(crisp), &run.Crisp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal crisp trace: %w", err)
	}
	if err := json.Unmarshal([]byte(fzy), &run.Fuzzy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fuzzy trace: %w", err)
	}
	return &run, nil
}

// ListRuns returns run summaries newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, source, created_at, lambda, iterations, concept_count
		FROM runs ORDER BY created_at DESC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var (
			sum          RunSummary
			name, source sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&sum.ID, &name, &source, &createdAt, &sum.Lambda, &sum.Iterations, &sum.Concepts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.Name = name.String
		sum.Source = source.String
		if sum.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteRun removes a run.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Reset discards every recorded run and recreates an empty schema.
func (s *SQLiteRunStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResetSchema(ctx, s.db)
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
