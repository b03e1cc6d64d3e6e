package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"state-time-service/internal/api"
	"state-time-service/internal/app"
	"state-time-service/internal/config"
	"state-time-service/internal/services"
	"syscall"
	"time"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	configPath := flag.String("config", config.Get("CONFIG_PATH", ""), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenCellStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	seed, err := store.Load(ctx)
	if err != nil {
		log.Fatalf("load cell cache: %v", err)
	}

	geocoder, err := app.NewGeocoder(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Both modes share one cell cache.
	cellCache := services.NewCellCache(seed)
	pipelines := make(map[services.Mode]*services.Pipeline, 2)
	for _, m := range []services.Mode{services.ModeFast, services.ModePrecise} {
		opts, err := cfg.PipelineOptions(m)
		if err != nil {
			log.Fatal(err)
		}
		p, err := services.NewPipeline(opts, cellCache, geocoder)
		if err != nil {
			log.Fatal(err)
		}
		pipelines[m] = p
	}

	defaultMode := services.ModeFast
	if modes, err := cfg.Modes(); err == nil && len(modes) == 1 {
		defaultMode = modes[0]
	}

	router := api.NewRouter(pipelines, defaultMode)

	// Timeouts are tuned for cold-cache attribution (external geocoder latency).
	log.Printf("Server listening addr=:%s cache_backend=%s cells=%d", cfg.Port, store.Backend, len(seed))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	// Persist cells learned while serving.
	fresh := cellCache.Fresh()
	if err := store.Save(context.Background(), fresh); err != nil {
		log.Fatalf("save cell cache: %v", err)
	}
	log.Printf("cell_cache saved new_cells=%d", len(fresh))
}
