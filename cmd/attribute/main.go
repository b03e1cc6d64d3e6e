package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"state-time-service/internal/adapters/output"
	"state-time-service/internal/adapters/routing"
	"state-time-service/internal/app"
	"state-time-service/internal/config"
	"state-time-service/internal/platform/obs"
	"state-time-service/internal/ports"
	"state-time-service/internal/services"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// main is the batch composition root: it attributes every route in
// RoutesDir and writes per-mode outputs under OutDir.
func main() {
	configPath := flag.String("config", config.Get("CONFIG_PATH", ""), "optional YAML config file")
	mode := flag.String("mode", "", "fast, precise or both (overrides MODE)")
	routesDir := flag.String("routes", "", "route JSON directory (overrides ROUTES_DIR)")
	outDir := flag.String("out", "", "output directory (overrides OUT_DIR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *routesDir != "" {
		cfg.RoutesDir = *routesDir
	}
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = obs.WithRequestID(ctx, runID)

	if err := run(ctx, cfg, runID); err != nil {
		log.Fatalf("req_id=%s level=error op=attribute err=%v", runID, err)
	}
}

func run(ctx context.Context, cfg config.Config, runID string) error {
	modes, err := cfg.Modes()
	if err != nil {
		return err
	}

	store, err := app.OpenCellStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// An unreadable cache is fatal; there is no partial-cache mode.
	seed, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cell cache: %w", err)
	}
	log.Printf("req_id=%s cell_cache backend=%s loaded=%d", runID, store.Backend, len(seed))

	geocoder, err := app.NewGeocoder(cfg)
	if err != nil {
		return err
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("state-time-attribute"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
	}

	source := routing.NewDirSource(cfg.RoutesDir)
	cellCache := services.NewCellCache(seed)
	summaries := make(map[services.Mode]*services.Summary, len(modes))

	for _, m := range modes {
		summary, err := runMode(ctx, cfg, runID, m, cellCache, geocoder, source, nc)
		if err != nil {
			return err
		}
		summaries[m] = summary
	}

	fresh := cellCache.Fresh()
	if err := store.Save(ctx, fresh); err != nil {
		return fmt.Errorf("save cell cache: %w", err)
	}
	if store.RecordRun != nil {
		if err := store.RecordRun(ctx, runID, cfg.Mode, len(fresh)); err != nil {
			log.Printf("req_id=%s record run failed: %v", runID, err)
		}
	}
	log.Printf("req_id=%s cell_cache saved new_cells=%d size=%d", runID, len(fresh), cellCache.Len())

	if len(summaries) == 2 {
		diffs := services.CompareSummaries(summaries[services.ModeFast], summaries[services.ModePrecise])
		if err := output.WriteComparison(ctx, cfg.OutDir, diffs); err != nil {
			return err
		}
		log.Printf("req_id=%s comparison rows=%d", runID, len(diffs))
	}

	return nil
}

func runMode(
	ctx context.Context,
	cfg config.Config,
	runID string,
	mode services.Mode,
	cellCache *services.CellCache,
	geocoder ports.ReverseGeocoder,
	source ports.RouteSource,
	nc *nats.Conn,
) (*services.Summary, error) {
	opts, err := cfg.PipelineOptions(mode)
	if err != nil {
		return nil, err
	}

	pipeline, err := services.NewPipeline(opts, cellCache, geocoder)
	if err != nil {
		return nil, err
	}

	writer, err := output.NewDirWriter(cfg.ModeOutDir(mode))
	if err != nil {
		return nil, err
	}

	sinks := output.FanOut{writer}
	var natsSink *output.NATSSink
	if nc != nil {
		natsSink = output.NewNATSSink(nc, cfg.NATSSubject, runID, string(mode))
		sinks = append(sinks, natsSink)
	}

	started := time.Now()
	res, err := pipeline.Run(ctx, source, sinks)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", mode, err)
	}

	if natsSink != nil {
		if err := natsSink.Flush(); err != nil {
			log.Printf("req_id=%s nats flush failed: %v", runID, err)
		}
	}

	if err := writer.WriteSummary(ctx, res.Summary); err != nil {
		return nil, err
	}
	if err := writer.WriteRunRecord(output.NewRunRecord(runID, started, time.Now(), res.Stats)); err != nil {
		return nil, err
	}

	if res.Stats.ConservationViolations > 0 {
		log.Printf("req_id=%s level=error mode=%s conservation_violations=%d",
			runID, mode, res.Stats.ConservationViolations)
	}
	if res.Stats.Trips > 0 && res.Stats.Succeeded == 0 {
		return nil, errors.New("no trip could be attributed")
	}

	return res.Summary, nil
}
