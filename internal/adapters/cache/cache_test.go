package cache

import (
	"context"
	"os"
	"path/filepath"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/db"
	"state-time-service/internal/ports"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the CellStore contract: empty load, save, reload,
// first value wins.
func exerciseStore(t *testing.T, s ports.CellStore) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(ctx, map[string]string{
		"89c25a31": "US:New York",
		"89c25b0c": domain.Unresolved,
	}))
	require.NoError(t, s.Save(ctx, nil))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"89c25a31": "US:New York",
		"89c25b0c": domain.Unresolved,
	}, got)

	require.NoError(t, s.Save(ctx, map[string]string{
		"89c25a31": "US:New Jersey",
		"54c0f3":   "US:Nevada",
	}))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "US:New York", got["89c25a31"], "existing cells keep their value")
	assert.Equal(t, "US:Nevada", got["54c0f3"])
}

func TestSqliteCellStore(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, InitSchema(context.Background(), conn, DialectSQLite))
	require.NoError(t, InitSchema(context.Background(), conn, DialectSQLite), "schema init is idempotent")

	exerciseStore(t, NewSqliteCellStore(conn))

	require.NoError(t, RecordRun(context.Background(), conn, DialectSQLite, "run-1", "fast", 3))
	var n int
	require.NoError(t, conn.QueryRow(`SELECT new_cells FROM cell_cache_runs WHERE run_id = 'run-1'`).Scan(&n))
	assert.Equal(t, 3, n)
}

// The PostgreSQL statements are also valid SQLite, so the store's
// first-write-wins upsert runs here without a server.
func TestSQLCellStoreOnSqlite(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, InitSchema(context.Background(), conn, DialectSQLite))
	exerciseStore(t, NewSQLCellStore(conn))
}

func TestSQLCellStorePostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := db.Open(url)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, InitSchema(ctx, conn, DialectPostgres))
	require.NoError(t, InitSchema(ctx, conn, DialectPostgres), "schema init is idempotent")
	_, err = conn.ExecContext(ctx, `DELETE FROM cell_cache`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `DELETE FROM cell_cache_runs WHERE run_id = 'pg-run-1'`)
	require.NoError(t, err)

	exerciseStore(t, NewSQLCellStore(conn))

	require.NoError(t, RecordRun(ctx, conn, DialectPostgres, "pg-run-1", "precise", 2))
	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT new_cells FROM cell_cache_runs WHERE run_id = 'pg-run-1'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLCellStoreNilDB(t *testing.T) {
	s := NewSQLCellStore(nil)

	_, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.Save(context.Background(), map[string]string{"89c25a31": "US:Ohio"}))
}

func TestSqliteCellStoreWithoutSchemaFailsLoad(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = NewSqliteCellStore(conn).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCacheLoad)
}

func TestParquetCellStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "cells_r9.parquet")
	exerciseStore(t, NewParquetCellStore(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestParquetCellStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0o644))

	_, err := NewParquetCellStore(path).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCacheLoad)
}

func TestRedisCellStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedisCellStore(client, ""))
	assert.True(t, mr.Exists(DefaultRedisKey))
}

func TestReadSeedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"cell_id":"89c25a31","state":"US:New York"},
		{"cell_id":"89c25a31","state":"US:New Jersey"},
		{"cell_id":"54c0f3","state":"US:Nevada"}
	]`), 0o644))

	got, err := ReadSeedJSON(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"89c25a31": "US:New York", "54c0f3": "US:Nevada"}, got)

	require.NoError(t, os.WriteFile(path, []byte(`[{"cell_id":"","state":"x"}]`), 0o644))
	_, err = ReadSeedJSON(path)
	assert.Error(t, err)
}
