package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/obs"

	"github.com/parquet-go/parquet-go"
)

type cellRow struct {
	CellID string `parquet:"cell_id"`
	State  string `parquet:"state"`
}

// ParquetCellStore keeps the cell cache in a single Parquet file with
// columns cell_id and state. A missing file loads as an empty cache.
type ParquetCellStore struct {
	Path string
}

func NewParquetCellStore(path string) *ParquetCellStore {
	return &ParquetCellStore{Path: path}
}

func (s *ParquetCellStore) Load(ctx context.Context) (_ map[string]string, err error) {
	defer obs.Time(ctx, "cell.parquet.Load")(&err)

	if _, err := os.Stat(s.Path); errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}

	rows, err := parquet.ReadFile[cellRow](s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", domain.ErrCacheLoad, s.Path, err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		if r.CellID == "" {
			continue
		}
		if _, ok := out[r.CellID]; ok {
			continue
		}
		out[r.CellID] = r.State
	}
	return out, nil
}

// Save merges cells into the file. Cells already in the file keep their
// value. The file is replaced atomically.
func (s *ParquetCellStore) Save(ctx context.Context, cells map[string]string) (err error) {
	defer obs.Time(ctx, "cell.parquet.Save")(&err)

	if len(cells) == 0 {
		return nil
	}

	merged, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("save cell cache: %w", err)
	}
	for cell, state := range cells {
		if _, ok := merged[cell]; !ok {
			merged[cell] = state
		}
	}

	rows := make([]cellRow, 0, len(merged))
	for cell, state := range merged {
		rows = append(rows, cellRow{CellID: cell, State: state})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CellID < rows[j].CellID })

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("save cell cache: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		return fmt.Errorf("save cell cache: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("save cell cache: %w", err)
	}

	return nil
}
