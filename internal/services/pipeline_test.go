package services

import (
	"context"
	"errors"
	"state-time-service/internal/adapters/geocode"
	"state-time-service/internal/domain"
	"state-time-service/internal/ports"
	"state-time-service/internal/spatial"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample boundaries fall well clear of the band edges.
var scenarioBands = []geocode.Band{
	{MaxLon: -115.5, State: "CA"},
	{MaxLon: -110, State: "NV"},
}

type memorySource struct {
	refs   []ports.RouteRef
	routes map[string]*domain.Route
}

func newMemorySource(routes ...*domain.Route) *memorySource {
	s := &memorySource{routes: make(map[string]*domain.Route)}
	for _, r := range routes {
		name := r.TripKey.String()
		s.refs = append(s.refs, ports.RouteRef{Name: name, TripKey: r.TripKey})
		s.routes[name] = r
	}
	return s
}

func (s *memorySource) ListRoutes(ctx context.Context) ([]ports.RouteRef, error) {
	return s.refs, nil
}

func (s *memorySource) LoadRoute(ctx context.Context, ref ports.RouteRef) (*domain.Route, error) {
	r, ok := s.routes[ref.Name]
	if !ok {
		return nil, errors.New("route not found")
	}
	return r, nil
}

type captureSink struct {
	mu    sync.Mutex
	trips []domain.TripResult
}

func (s *captureSink) WriteTrip(ctx context.Context, r domain.TripResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = append(s.trips, r)
	return nil
}

// halfAttributor drops half of every maneuver.
type halfAttributor struct{}

func (halfAttributor) Name() string { return "half" }

func (halfAttributor) Attribute(states []string, seconds float64) []domain.StateShare {
	return []domain.StateShare{{State: states[0], Seconds: seconds / 2}}
}

// scenarioRoute is a CA -> NV trip: a 120 s maneuver entirely in CA and a
// 180 s maneuver whose five index samples classify CA,CA,NV,NV,NV.
func scenarioRoute(vehicle, trip string) *domain.Route {
	shape := []domain.Coordinates{
		{Lat: 36, Lon: -120},
		{Lat: 36, Lon: -119},
		{Lat: 36, Lon: -117},
		{Lat: 36, Lon: -113},
	}
	return &domain.Route{
		TripKey: domain.TripKey{VehicleID: vehicle, TripID: trip},
		Shape:   encodeShape(shape),
		Maneuvers: []domain.Maneuver{
			{BeginIndex: 0, EndIndex: 1, Seconds: 120},
			{BeginIndex: 2, EndIndex: 3, Seconds: 180},
		},
		LegSeconds: 300,
	}
}

func newScenarioPipeline(t *testing.T, mode Mode, attributor Attributor, g ports.ReverseGeocoder, cache *CellCache) *Pipeline {
	t.Helper()
	opts := DefaultOptions(mode)
	opts.Workers = 4

	keyer, err := spatial.NewKeyer(opts.Resolution())
	require.NoError(t, err)
	sampler, err := NewIndexSampler(5, spatial.Haversine)
	require.NoError(t, err)
	if cache == nil {
		cache = NewCellCache(nil)
	}

	return &Pipeline{
		opts:       opts,
		sampler:    sampler,
		attributor: attributor,
		classifier: NewClassifier(keyer, cache, g),
	}
}

func allocationsByState(r domain.TripResult) map[string]float64 {
	out := make(map[string]float64)
	for _, a := range r.Allocations {
		out[a.State] += a.DriveSeconds
	}
	return out
}

func TestAttributeRouteProportionalScenario(t *testing.T) {
	p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude},
		geocode.NewMockGeocoder(scenarioBands), nil)

	res, err := p.AttributeRoute(context.Background(), scenarioRoute("truck", "t1"))
	require.NoError(t, err)

	got := allocationsByState(res)
	assert.InDelta(t, 192.0, got["CA"], 1e-9)
	assert.InDelta(t, 108.0, got["NV"], 1e-9)
	assert.InDelta(t, 300.0, res.DriveSeconds(), 1e-9)
	assert.Equal(t, 2, res.Maneuvers)
	assert.Equal(t, 10, res.Samples)

	require.Len(t, res.Allocations, 2)
	assert.Equal(t, "CA", res.Allocations[0].State, "first-seen order")
	assert.Equal(t, 2, res.Allocations[0].ManeuverCount)
	assert.Equal(t, 1, res.Allocations[1].ManeuverCount)
	assert.Equal(t, 300.0, res.Allocations[1].LegSecondsTotal)
}

func TestAttributeRouteMajorityScenario(t *testing.T) {
	p := newScenarioPipeline(t, ModeFast, MajorityVote{Policy: UnresolvedExclude},
		geocode.NewMockGeocoder(scenarioBands), nil)

	res, err := p.AttributeRoute(context.Background(), scenarioRoute("truck", "t1"))
	require.NoError(t, err)

	got := allocationsByState(res)
	assert.InDelta(t, 120.0, got["CA"], 1e-9)
	assert.InDelta(t, 180.0, got["NV"], 1e-9)
}

func TestAttributeRouteDegenerateManeuvers(t *testing.T) {
	p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude},
		geocode.NewMockGeocoder(scenarioBands), nil)

	route := scenarioRoute("truck", "t1")
	route.Maneuvers = []domain.Maneuver{
		{BeginIndex: 1, EndIndex: 1, Seconds: 30},
		{BeginIndex: 2, EndIndex: 3, Seconds: 0},
		{BeginIndex: 3, EndIndex: 4, Seconds: 15},
	}

	res, err := p.AttributeRoute(context.Background(), route)
	require.NoError(t, err)

	got := allocationsByState(res)
	assert.InDelta(t, 30.0, got["CA"], 1e-9)
	assert.InDelta(t, 15.0, got["NV"], 1e-9, "end index equal to shape length is clamped")
	assert.Equal(t, 2, res.Maneuvers, "zero-second maneuvers are skipped")
	assert.Equal(t, 2, res.Samples)
}

func TestAttributeRouteAllUnresolvedGoesToUnknown(t *testing.T) {
	g := geocode.NewMockGeocoder(nil)
	p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude}, g, nil)

	res, err := p.AttributeRoute(context.Background(), scenarioRoute("truck", "t1"))
	require.NoError(t, err)

	got := allocationsByState(res)
	assert.Len(t, got, 1)
	assert.InDelta(t, 300.0, got[domain.Unknown], 1e-9)
}

func TestAttributeRouteRejectsBadInput(t *testing.T) {
	p := newScenarioPipeline(t, ModeFast, MajorityVote{}, geocode.NewMockGeocoder(scenarioBands), nil)
	ctx := context.Background()

	_, err := p.AttributeRoute(ctx, nil)
	assert.Error(t, err)

	empty := scenarioRoute("truck", "t1")
	empty.Maneuvers = nil
	_, err = p.AttributeRoute(ctx, empty)
	assert.ErrorIs(t, err, domain.ErrEmptyRoute)

	bad := scenarioRoute("truck", "t1")
	bad.Shape = "_"
	_, err = p.AttributeRoute(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrMalformedShape)

	outOfRange := scenarioRoute("truck", "t1")
	outOfRange.Maneuvers = []domain.Maneuver{{BeginIndex: 2, EndIndex: 9, Seconds: 10}}
	_, err = p.AttributeRoute(ctx, outOfRange)
	assert.ErrorIs(t, err, domain.ErrInvalidManeuver)
}

func TestRunIsolatesFailedTrips(t *testing.T) {
	badShape := scenarioRoute("truck", "bad-shape")
	badShape.Shape = "_"
	badIndex := scenarioRoute("truck", "bad-index")
	badIndex.Maneuvers = []domain.Maneuver{{BeginIndex: 3, EndIndex: 1, Seconds: 10}}

	src := newMemorySource(scenarioRoute("truck", "t1"), badShape, badIndex, scenarioRoute("truck", "t2"))
	sink := &captureSink{}
	p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude},
		geocode.NewMockGeocoder(scenarioBands), nil)

	out, err := p.Run(context.Background(), src, sink)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Stats.Trips)
	assert.Equal(t, 2, out.Stats.Succeeded)
	assert.Equal(t, 2, out.Stats.Failed)
	assert.Equal(t, 0, out.Stats.ConservationViolations)
	require.Len(t, out.Stats.Failures, 2)
	assert.Equal(t, "bad-shape", out.Stats.Failures[0].Route.TripID)
	assert.Equal(t, "bad-index", out.Stats.Failures[1].Route.TripID)

	assert.Len(t, sink.trips, 2)
	require.Len(t, out.Summary.StateTotals, 2)
	assert.Equal(t, "CA", out.Summary.StateTotals[0].State)
	assert.InDelta(t, 384.0, out.Summary.StateTotals[0].TotalDriveSeconds, 1e-9)
	assert.Equal(t, 2, out.Summary.StateTotals[0].NumTrips)
	assert.Empty(t, out.Summary.Filtered)
}

func TestRunFlagsConservationViolations(t *testing.T) {
	src := newMemorySource(scenarioRoute("truck", "t1"))
	p := newScenarioPipeline(t, ModeFast, halfAttributor{}, geocode.NewMockGeocoder(scenarioBands), nil)

	out, err := p.Run(context.Background(), src, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Stats.Failed)
	assert.Equal(t, 1, out.Stats.ConservationViolations)
	require.Len(t, out.Stats.Failures, 1)
	assert.True(t, out.Stats.Failures[0].Conservation)
	assert.Empty(t, out.Summary.Allocations)
}

func TestRunIsDeterministic(t *testing.T) {
	var routes []*domain.Route
	for _, id := range []string{"t3", "t1", "t2", "t5", "t4"} {
		routes = append(routes, scenarioRoute("truck-"+id, id))
	}

	run := func() *RunResult {
		p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude},
			geocode.NewMockGeocoder(scenarioBands), nil)
		out, err := p.Run(context.Background(), newMemorySource(routes...), nil)
		require.NoError(t, err)
		return out
	}

	first, second := run(), run()
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Stats.NewCells, second.Stats.NewCells)
}

func TestRunWarmCacheMakesNoGeocoderCalls(t *testing.T) {
	src := newMemorySource(scenarioRoute("truck", "t1"), scenarioRoute("truck", "t2"))

	cold := geocode.NewMockGeocoder(scenarioBands)
	p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude}, cold, nil)
	first, err := p.Run(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Positive(t, cold.Calls())
	assert.Equal(t, first.Stats.CacheSize, first.Stats.NewCells)

	warm := geocode.NewMockGeocoder(scenarioBands)
	seed := p.Classifier().Cache().Snapshot()
	p2 := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude}, warm, NewCellCache(seed))
	second, err := p2.Run(context.Background(), src, nil)
	require.NoError(t, err)

	assert.Zero(t, warm.Calls())
	assert.Zero(t, second.Stats.NewCells)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Less(t, first.Stats.CacheHits, first.Stats.Samples)
	assert.Equal(t, second.Stats.Samples, second.Stats.CacheHits)
}

func TestAttributeRouteReportsCacheHits(t *testing.T) {
	g := geocode.NewMockGeocoder(scenarioBands)
	p := newScenarioPipeline(t, ModePrecise, ProportionalSplit{Policy: UnresolvedExclude}, g, nil)

	first, err := p.AttributeRoute(context.Background(), scenarioRoute("truck", "t1"))
	require.NoError(t, err)
	calls := g.Calls()
	assert.Equal(t, first.Samples, first.CacheHits+calls)

	second, err := p.AttributeRoute(context.Background(), scenarioRoute("truck", "t2"))
	require.NoError(t, err)
	assert.Equal(t, calls, g.Calls())
	assert.Equal(t, second.Samples, second.CacheHits)
}

func TestNewPipelineUsesModeDefaults(t *testing.T) {
	p, err := NewPipeline(Options{Mode: ModePrecise}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "proportional_split", p.Attributor().Name())
	assert.Equal(t, DefaultSampleStepMeters, p.Options().SampleStepMeters)
	assert.Equal(t, spatial.DefaultResolution, p.Options().Resolution())
	assert.Equal(t, 15, p.Classifier().Keyer().Level())

	_, err = NewPipeline(Options{Mode: ModeFast, SampleCount: 1}, nil, nil)
	assert.Error(t, err)
}

func TestZeroOptionsKeepStatesInSeparateCells(t *testing.T) {
	p, err := NewPipeline(Options{Mode: ModeFast}, nil, nil)
	require.NoError(t, err)

	k := p.Classifier().Keyer()
	assert.Equal(t, 9, k.Resolution())
	assert.Equal(t, 15, k.Level())

	ca := domain.Coordinates{Lat: 36, Lon: -120}
	nv := domain.Coordinates{Lat: 39, Lon: -117}
	assert.NotEqual(t, k.Key(ca), k.Key(nv))
}

func TestExplicitResolutionZeroIsHonoured(t *testing.T) {
	p, err := NewPipeline(Options{Mode: ModeFast, CellResolution: CellRes(0)}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, p.Classifier().Keyer().Resolution())
	assert.Equal(t, 2, p.Classifier().Keyer().Level())
}
