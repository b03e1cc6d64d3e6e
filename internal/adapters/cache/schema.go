package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SQL dialect of a cell cache database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Initialize the cell cache schema.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCellCacheQuery := `
	CREATE TABLE IF NOT EXISTS cell_cache (
		cell_id TEXT PRIMARY KEY,
		state TEXT NOT NULL
	);
	`

	createdAt := "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
	if dialect == DialectPostgres {
		createdAt = "TIMESTAMPTZ NOT NULL DEFAULT now()"
	}
	createRunsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS cell_cache_runs (
		run_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		new_cells INTEGER NOT NULL,
		created_at %s
	);
	`, createdAt)

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_cell_cache_state
	ON cell_cache(state);
	`

	statements := []string{
		createCellCacheQuery,
		createRunsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type CellSeed struct {
	CellID string `json:"cell_id"`
	State  string `json:"state"`
}

// ReadSeedJSON reads cell -> state rows from a JSON array file.
func ReadSeedJSON(jsonPath string) (map[string]string, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed cells: read %q: %w", jsonPath, err)
	}

	var data []CellSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed cells: parse json: %w", err)
	}

	out := make(map[string]string, len(data))
	for i, item := range data {
		cell := strings.TrimSpace(item.CellID)
		if cell == "" {
			return nil, fmt.Errorf("seed cells: item at index %d: cell_id cannot be empty", i+1)
		}

		state := strings.TrimSpace(item.State)
		if state == "" {
			return nil, fmt.Errorf("seed cells: item at index %d: state cannot be empty", i+1)
		}

		if _, ok := out[cell]; ok {
			continue
		}
		out[cell] = state
	}

	return out, nil
}

// RecordRun logs a pipeline run that wrote newCells cells to the cache.
func RecordRun(ctx context.Context, db *sql.DB, dialect Dialect, runID, mode string, newCells int) error {
	if db == nil {
		return errors.New("record run: DB is nil")
	}

	q := `INSERT INTO cell_cache_runs (run_id, mode, new_cells) VALUES (?, ?, ?);`
	if dialect == DialectPostgres {
		q = `INSERT INTO cell_cache_runs (run_id, mode, new_cells) VALUES ($1, $2, $3);`
	}

	if _, err := db.ExecContext(ctx, q, runID, mode, newCells); err != nil {
		return fmt.Errorf("record run %s: %w", runID, err)
	}
	return nil
}
