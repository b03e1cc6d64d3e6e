// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CellCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statetime_cell_cache_lookups_total",
		Help: "Cell cache lookups by result (hit, miss).",
	}, []string{"result"})

	GeocodeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statetime_geocode_calls_total",
		Help: "Reverse geocoder calls by outcome (found, no_match, error).",
	}, []string{"outcome"})

	GeocodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statetime_geocode_duration_seconds",
		Help:    "Reverse geocoder call latency.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	TripsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statetime_trips_total",
		Help: "Trips attributed by outcome (ok, failed, conservation).",
	}, []string{"outcome"})

	DriveSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statetime_drive_seconds_total",
		Help: "Attributed drive seconds by attribution mode.",
	}, []string{"mode"})
)
