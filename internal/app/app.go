// Package app builds the adapters selected by configuration. It is shared
// by the cmd/ composition roots.
package app

import (
	"context"
	"fmt"
	"log"
	"state-time-service/internal/adapters/cache"
	"state-time-service/internal/adapters/geocode"
	"state-time-service/internal/config"
	"state-time-service/internal/platform/db"
	"state-time-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

// CellStore is an opened cell store and the resources behind it.
type CellStore struct {
	ports.CellStore
	Backend string
	// RecordRun logs a run in SQL backends; nil for the others.
	RecordRun func(ctx context.Context, runID, mode string, newCells int) error
	close     func() error
}

func (s *CellStore) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

type noopStore struct{}

func (noopStore) Load(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}
func (noopStore) Save(ctx context.Context, cells map[string]string) error { return nil }

// OpenCellStore opens the configured cell cache backend. SQL backends get
// their schema initialised.
func OpenCellStore(ctx context.Context, cfg config.Config) (*CellStore, error) {
	switch cfg.CacheBackend {
	case "parquet":
		return &CellStore{CellStore: cache.NewParquetCellStore(cfg.CachePath), Backend: cfg.CacheBackend}, nil

	case "sqlite":
		conn, err := db.OpenSQLite(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		if err := cache.InitSchema(ctx, conn, cache.DialectSQLite); err != nil {
			conn.Close()
			return nil, err
		}
		return &CellStore{
			CellStore: cache.NewSqliteCellStore(conn),
			Backend:   cfg.CacheBackend,
			RecordRun: func(ctx context.Context, runID, mode string, newCells int) error {
				return cache.RecordRun(ctx, conn, cache.DialectSQLite, runID, mode, newCells)
			},
			close: conn.Close,
		}, nil

	case "postgres":
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := cache.InitSchema(ctx, conn, cache.DialectPostgres); err != nil {
			conn.Close()
			return nil, err
		}
		return &CellStore{
			CellStore: cache.NewSQLCellStore(conn),
			Backend:   cfg.CacheBackend,
			RecordRun: func(ctx context.Context, runID, mode string, newCells int) error {
				return cache.RecordRun(ctx, conn, cache.DialectPostgres, runID, mode, newCells)
			},
			close: conn.Close,
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("open redis %s: %w", cfg.RedisAddr, err)
		}
		key := fmt.Sprintf("%s:r%d", cache.DefaultRedisKey, cfg.CellResolution)
		return &CellStore{
			CellStore: cache.NewRedisCellStore(client, key),
			Backend:   cfg.CacheBackend,
			close:     client.Close,
		}, nil

	case "none", "":
		return &CellStore{CellStore: noopStore{}, Backend: "none"}, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// NewGeocoder builds the reverse geocoder: state polygons first when a
// GeoJSON file is configured, then Nominatim when a URL is configured.
func NewGeocoder(cfg config.Config) (ports.ReverseGeocoder, error) {
	var chain geocode.Chain

	if cfg.StatesGeoJSON != "" {
		pg, err := geocode.NewPolygonGeocoderFromFile(cfg.StatesGeoJSON)
		if err != nil {
			return nil, err
		}
		log.Printf("geocoder=polygon areas=%d path=%s", len(pg.Areas()), cfg.StatesGeoJSON)
		chain = append(chain, pg)
	}

	if cfg.NominatimURL != "" {
		ng, err := geocode.NewNominatimGeocoder(cfg.NominatimURL, cfg.GeocodeTimeout, cfg.GeocodeRPS)
		if err != nil {
			return nil, err
		}
		log.Printf("geocoder=nominatim url=%s rps=%.1f", cfg.NominatimURL, cfg.GeocodeRPS)
		chain = append(chain, ng)
	}

	switch len(chain) {
	case 0:
		return nil, fmt.Errorf("no geocoder configured (set STATES_GEOJSON or NOM_URL)")
	case 1:
		return chain[0], nil
	default:
		return chain, nil
	}
}
