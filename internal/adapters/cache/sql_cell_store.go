package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/obs"
	"strings"
)

// SQLCellStore is a PostgreSQL-backed cell -> state cache.
type SQLCellStore struct {
	DB *sql.DB
}

func NewSQLCellStore(db *sql.DB) *SQLCellStore {
	return &SQLCellStore{DB: db}
}

func (s *SQLCellStore) Load(ctx context.Context) (_ map[string]string, err error) {
	defer obs.Time(ctx, "cell.sql.Load")(&err)

	if s.DB == nil {
		return nil, errors.New("cell cache: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT cell_id, state
	FROM cell_cache;
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query cell_cache table: %v", domain.ErrCacheLoad, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var cell, state string
		if err := rows.Scan(&cell, &state); err != nil {
			return nil, fmt.Errorf("%w: scan rows: %v", domain.ErrCacheLoad, err)
		}
		out[cell] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration: %v", domain.ErrCacheLoad, err)
	}

	return out, nil
}

// Store cell -> state mappings; the first stored value for a cell wins.
func (s *SQLCellStore) Save(ctx context.Context, cells map[string]string) (err error) {
	defer obs.Time(ctx, "cell.sql.Save")(&err)

	if s.DB == nil {
		return errors.New("cell cache: db is nil")
	}

	if len(cells) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert cell cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO cell_cache (cell_id, state)
	VALUES ($1, $2)
	ON CONFLICT (cell_id) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("insert cell cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for cell, state := range cells {
		if strings.TrimSpace(cell) == "" {
			return fmt.Errorf("insert cell cache: empty cell key")
		}

		if _, err := stmt.ExecContext(ctx, cell, state); err != nil {
			return fmt.Errorf("insert cell cache cell=%q: %w", cell, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert cell cache commit: %w", err)
	}

	return nil
}
