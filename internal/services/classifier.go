package services

import (
	"context"
	"log"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/metrics"
	"state-time-service/internal/platform/obs"
	"state-time-service/internal/ports"
	"state-time-service/internal/spatial"
	"time"
)

// Classifier maps coordinates to state codes through the cell cache,
// falling back to the geocoder on a miss.
//
// The classifier is safe for concurrent use.
type Classifier struct {
	keyer    spatial.Keyer
	cache    *CellCache
	geocoder ports.ReverseGeocoder
}

func NewClassifier(keyer spatial.Keyer, cache *CellCache, geocoder ports.ReverseGeocoder) *Classifier {
	if cache == nil {
		cache = NewCellCache(nil)
	}
	return &Classifier{keyer: keyer, cache: cache, geocoder: geocoder}
}

// Cache exposes the classifier's cell cache for persistence.
func (c *Classifier) Cache() *CellCache { return c.cache }

// Keyer exposes the cell keyer in use.
func (c *Classifier) Keyer() spatial.Keyer { return c.keyer }

// Classify returns the state code for coord, or domain.Unresolved.
// hit reports whether the answer came from the cache.
func (c *Classifier) Classify(ctx context.Context, coord domain.Coordinates) (state string, hit bool) {
	cell := c.keyer.Key(coord)

	if s, ok := c.cache.Lookup(cell); ok {
		metrics.CellCacheLookups.WithLabelValues("hit").Inc()
		return s, true
	}
	metrics.CellCacheLookups.WithLabelValues("miss").Inc()

	if c.geocoder == nil {
		return domain.Unresolved, false
	}

	start := time.Now()
	s, found, err := c.geocoder.ReverseState(ctx, coord)
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// Transport failures are not cached so a later lookup can retry.
		metrics.GeocodeCalls.WithLabelValues("error").Inc()
		log.Printf("req_id=%s op=classify cell=%s lat=%.6f lon=%.6f geocode_err=%v",
			obs.RequestID(ctx), cell, coord.Lat, coord.Lon, err)
		return domain.Unresolved, false
	}

	if !found || s == "" {
		metrics.GeocodeCalls.WithLabelValues("no_match").Inc()
		s = domain.Unresolved
	} else {
		metrics.GeocodeCalls.WithLabelValues("found").Inc()
	}

	stored, _ := c.cache.Insert(cell, s)
	return stored, false
}

// ClassifySamples classifies each sample in order.
func (c *Classifier) ClassifySamples(ctx context.Context, samples []domain.Sample) (states []string, hits int) {
	states = make([]string, len(samples))
	for i, s := range samples {
		st, hit := c.Classify(ctx, s.Coordinates)
		if hit {
			hits++
		}
		states[i] = st
	}
	return states, hits
}
