package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"state-time-service/internal/adapters/cache"
	"state-time-service/internal/config"
	"state-time-service/internal/platform/db"
	"state-time-service/internal/ports"
	"strings"

	"github.com/joho/godotenv"
)

// dbtool initialises the cell cache schema and optionally seeds it from a
// JSON file of {"cell_id","state"} rows.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	dialect := flag.String("dialect", config.Get("DB_DIALECT", "postgres"), "postgres or sqlite")
	seedPath := flag.String("seed", config.Get("SEED_PATH", ""), "optional cell seed JSON file")
	flag.Parse()

	ctx := context.Background()

	var (
		conn  *sql.DB
		store ports.CellStore
		err   error
	)
	switch cache.Dialect(*dialect) {
	case cache.DialectPostgres:
		databaseURL := config.Get("DATABASE_URL", "")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required")
		}
		conn, err = db.Open(databaseURL)
		if err == nil {
			store = cache.NewSQLCellStore(conn)
		}
	case cache.DialectSQLite:
		conn, err = db.OpenSQLite(config.Get("CACHE_PATH", "data/cache/cells.db"))
		if err == nil {
			store = cache.NewSqliteCellStore(conn)
		}
	default:
		log.Fatalf("unknown dialect %q", *dialect)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := initAndSeed(ctx, conn, cache.Dialect(*dialect), store, *seedPath); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect cache.Dialect, store ports.CellStore, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := cache.InitSchema(ctx, conn, dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if seedPath == "" {
		return nil
	}

	log.Println("Seeding cell cache...")
	cells, err := cache.ReadSeedJSON(seedPath)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	if err := store.Save(ctx, cells); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Printf("Seeding complete. cells=%d", len(cells))

	return nil
}
