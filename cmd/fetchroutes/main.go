package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"state-time-service/internal/adapters/routing"
	"state-time-service/internal/config"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// fetchroutes requests a truck route for every pair of corpus cities from
// Valhalla and saves the raw responses as <A>_to_<B>.json.
func main() {
	configPath := flag.String("config", config.Get("CONFIG_PATH", ""), "optional YAML config file")
	force := flag.Bool("force", false, "refetch routes that already exist on disk")
	parallel := flag.Int("parallel", 4, "concurrent route requests")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := routing.NewValhallaClient(cfg.ValhallaURL, 0)
	if err != nil {
		log.Fatal(err)
	}
	dir := routing.NewDirSource(cfg.RoutesDir)

	pairs := routing.Pairs(routing.Cities)
	log.Printf("Total routes to compute: %d", len(pairs))

	var saved, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, *parallel))

	for _, p := range pairs {
		g.Go(func() error {
			name := p.Name()
			if !*force {
				if _, err := os.Stat(filepath.Join(cfg.RoutesDir, name+".json")); err == nil {
					skipped.Add(1)
					return nil
				}
			}

			body, err := client.FetchRaw(gctx, p.From.Coordinates, p.To.Coordinates)
			if err != nil {
				failed.Add(1)
				log.Printf("route=%s fetch failed: %v", name, err)
				return gctx.Err()
			}
			if err := dir.SaveRoute(name, body); err != nil {
				return err
			}
			saved.Add(1)
			log.Printf("Saved: %s", name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Done. saved=%d skipped=%d failed=%d", saved.Load(), skipped.Load(), failed.Load())
}
