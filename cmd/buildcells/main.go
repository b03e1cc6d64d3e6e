package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"state-time-service/internal/adapters/geocode"
	"state-time-service/internal/app"
	"state-time-service/internal/config"
	"state-time-service/internal/spatial"
	"syscall"
)

// buildcells pre-populates the cell cache with every cell lying entirely
// inside a state polygon. Border cells are left to the geocoder at run time.
func main() {
	configPath := flag.String("config", config.Get("CONFIG_PATH", ""), "optional YAML config file")
	statesPath := flag.String("states", "", "state polygons GeoJSON (overrides STATES_GEOJSON)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *statesPath != "" {
		cfg.StatesGeoJSON = *statesPath
	}
	if cfg.StatesGeoJSON == "" {
		log.Fatal("STATES_GEOJSON is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	areas, err := geocode.LoadStateAreas(cfg.StatesGeoJSON)
	if err != nil {
		log.Fatal(err)
	}

	keyer, err := spatial.NewKeyer(cfg.CellResolution)
	if err != nil {
		log.Fatal(err)
	}

	cells := make(map[string]string)
	for _, a := range areas {
		if err := ctx.Err(); err != nil {
			log.Fatal(err)
		}

		ids, err := keyer.InteriorCells(a.Geometry)
		if err != nil {
			log.Printf("state=%s skipped: %v", a.Code, err)
			continue
		}

		added := 0
		for _, id := range ids {
			// First state wins where polygons overlap.
			if _, ok := cells[id]; !ok {
				cells[id] = a.Code
				added++
			}
		}
		log.Printf("state=%s cells=%d", a.Code, added)
	}

	store, err := app.OpenCellStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.Save(ctx, cells); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %d cells at resolution %d (level %d) backend=%s",
		len(cells), keyer.Resolution(), keyer.Level(), store.Backend)
}
