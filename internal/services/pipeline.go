package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/metrics"
	"state-time-service/internal/platform/obs"
	"state-time-service/internal/ports"
	"state-time-service/internal/spatial"

	"golang.org/x/sync/errgroup"
)

// Pipeline attributes per-state drive time to routes:
// decode -> sample -> classify -> attribute, per maneuver, then aggregates
// across trips. Trips are processed in parallel and fail independently.
type Pipeline struct {
	opts       Options
	sampler    Sampler
	attributor Attributor
	classifier *Classifier
}

func NewPipeline(opts Options, cache *CellCache, geocoder ports.ReverseGeocoder) (*Pipeline, error) {
	opts = opts.withDefaults()

	keyer, err := spatial.NewKeyer(opts.Resolution())
	if err != nil {
		return nil, fmt.Errorf("new pipeline: %w", err)
	}

	sampler, err := opts.NewSampler()
	if err != nil {
		return nil, fmt.Errorf("new pipeline: %w", err)
	}

	attributor, err := opts.NewAttributor()
	if err != nil {
		return nil, fmt.Errorf("new pipeline: %w", err)
	}

	return &Pipeline{
		opts:       opts,
		sampler:    sampler,
		attributor: attributor,
		classifier: NewClassifier(keyer, cache, geocoder),
	}, nil
}

func (p *Pipeline) Options() Options        { return p.opts }
func (p *Pipeline) Classifier() *Classifier { return p.classifier }
func (p *Pipeline) Attributor() Attributor  { return p.attributor }

// AttributeRoute converts one route into per-state allocations.
// Input malformation and conservation failures are returned as errors
// wrapping the domain sentinels.
func (p *Pipeline) AttributeRoute(ctx context.Context, route *domain.Route) (_ domain.TripResult, err error) {
	ctx, end := obs.Span(ctx, "pipeline.AttributeRoute")
	defer func() { end(err) }()

	if route == nil {
		return domain.TripResult{}, errors.New("attribute route: route must be non-nil")
	}
	if len(route.Maneuvers) == 0 {
		return domain.TripResult{}, fmt.Errorf("attribute route %s: %w", route.TripKey, domain.ErrEmptyRoute)
	}

	shape, err := DecodeShape(route.Shape, p.opts.ShapePrecision)
	if err != nil {
		return domain.TripResult{}, fmt.Errorf("attribute route %s: %w", route.TripKey, err)
	}

	legTotal := route.LegSecondsTotal()
	result := domain.TripResult{
		TripKey:         route.TripKey,
		LegSecondsTotal: legTotal,
	}
	index := make(map[string]int)

	for i, m := range route.Maneuvers {
		if err := ctx.Err(); err != nil {
			return domain.TripResult{}, err
		}

		path, err := ManeuverSlice(shape, m)
		if err != nil {
			return domain.TripResult{}, fmt.Errorf("attribute route %s: maneuver %d: %w", route.TripKey, i, err)
		}
		if m.Seconds == 0 {
			continue
		}

		samples := p.sampler.Sample(path)
		states, hits := p.classifier.ClassifySamples(ctx, samples)
		shares := p.attributor.Attribute(states, m.Seconds)

		if err := CheckConservation(shares, m.Seconds); err != nil {
			return domain.TripResult{}, fmt.Errorf("attribute route %s: maneuver %d (%s): %w",
				route.TripKey, i, p.attributor.Name(), err)
		}

		result.Maneuvers++
		result.Samples += len(samples)
		result.CacheHits += hits

		for _, s := range shares {
			k, ok := index[s.State]
			if !ok {
				k = len(result.Allocations)
				index[s.State] = k
				result.Allocations = append(result.Allocations, domain.StateAllocation{
					VehicleID:       route.VehicleID,
					TripID:          route.TripID,
					State:           s.State,
					LegSecondsTotal: legTotal,
				})
			}
			result.Allocations[k].DriveSeconds += s.Seconds
			result.Allocations[k].ManeuverCount++
		}
	}

	metrics.DriveSeconds.WithLabelValues(string(p.opts.Mode)).Add(result.DriveSeconds())
	return result, nil
}

// A trip that could not be attributed.
type TripFailure struct {
	Route  ports.RouteRef
	Reason string
	// Conservation is set when the failure is an internal invariant
	// violation rather than bad input.
	Conservation bool
}

// Counters reported at the end of a run.
type RunStats struct {
	Mode                   Mode
	Trips                  int
	Succeeded              int
	Failed                 int
	ConservationViolations int
	Maneuvers              int
	Samples                int
	CacheHits              int
	CacheSize              int
	NewCells               int
	Failures               []TripFailure
}

// Outcome of Run.
type RunResult struct {
	Summary *Summary
	Stats   RunStats
}

// Run attributes every route from source, streams trip results to sink
// (which may be nil), and returns the aggregate summary.
//
// A failed trip is logged, counted and excluded from the aggregate; the
// run continues. Only listing errors and context cancellation abort it.
func (p *Pipeline) Run(ctx context.Context, source ports.RouteSource, sink ports.AllocationSink) (_ *RunResult, err error) {
	defer obs.Time(ctx, "pipeline.Run")(&err)

	refs, err := source.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("run: list routes: %w", err)
	}

	type outcome struct {
		result domain.TripResult
		err    error
	}
	outcomes := make([]outcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, ref := range refs {
		g.Go(func() error {
			route, err := source.LoadRoute(gctx, ref)
			if err != nil {
				outcomes[i] = outcome{err: fmt.Errorf("load route: %w", err)}
				return gctx.Err()
			}

			res, err := p.AttributeRoute(gctx, route)
			outcomes[i] = outcome{result: res, err: err}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	stats := RunStats{Mode: p.opts.Mode, Trips: len(refs)}
	agg := NewAggregate()

	for i, o := range outcomes {
		ref := refs[i]
		if o.err == nil && sink != nil {
			if werr := sink.WriteTrip(ctx, o.result); werr != nil {
				o.err = fmt.Errorf("write trip: %w", werr)
			}
		}

		if o.err != nil {
			f := TripFailure{
				Route:        ref,
				Reason:       o.err.Error(),
				Conservation: errors.Is(o.err, domain.ErrConservation),
			}
			stats.Failed++
			stats.Failures = append(stats.Failures, f)

			if f.Conservation {
				stats.ConservationViolations++
				metrics.TripsProcessed.WithLabelValues("conservation").Inc()
				log.Printf("req_id=%s level=error op=pipeline.Run trip=%s invariant=conservation err=%v",
					obs.RequestID(ctx), ref.TripKey, o.err)
			} else {
				metrics.TripsProcessed.WithLabelValues("failed").Inc()
				log.Printf("req_id=%s op=pipeline.Run trip=%s route=%s skipped err=%v",
					obs.RequestID(ctx), ref.TripKey, ref.Name, o.err)
			}
			continue
		}

		metrics.TripsProcessed.WithLabelValues("ok").Inc()
		stats.Succeeded++
		stats.Maneuvers += o.result.Maneuvers
		stats.Samples += o.result.Samples
		stats.CacheHits += o.result.CacheHits
		agg.Add(o.result)
	}

	cache := p.classifier.Cache()
	stats.CacheSize = cache.Len()
	stats.NewCells = len(cache.Fresh())

	log.Printf(
		"req_id=%s op=pipeline.Run mode=%s trips=%d ok=%d failed=%d conservation=%d samples=%d cache_hits=%d cache_size=%d new_cells=%d",
		obs.RequestID(ctx), stats.Mode, stats.Trips, stats.Succeeded, stats.Failed,
		stats.ConservationViolations, stats.Samples, stats.CacheHits, stats.CacheSize, stats.NewCells,
	)

	return &RunResult{
		Summary: agg.Summarize(p.opts.TimeThresholdSeconds),
		Stats:   stats,
	}, nil
}
