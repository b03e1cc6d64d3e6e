package services

import (
	"state-time-service/internal/domain"
	"state-time-service/internal/spatial"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightPath(lat, fromLon, toLon float64, points int) []domain.Coordinates {
	out := make([]domain.Coordinates, points)
	for i := range out {
		f := float64(i) / float64(points-1)
		out[i] = domain.Coordinates{Lat: lat, Lon: fromLon + f*(toLon-fromLon)}
	}
	return out
}

func TestIndexSamplerSpacing(t *testing.T) {
	s, err := NewIndexSampler(5, spatial.Haversine)
	require.NoError(t, err)

	path := []domain.Coordinates{{Lat: 36, Lon: -117}, {Lat: 36, Lon: -113}}
	samples := s.Sample(path)

	require.Len(t, samples, 5)
	wantLon := []float64{-117, -116, -115, -114, -113}
	for i, smp := range samples {
		assert.InDelta(t, wantLon[i], smp.Lon, 1e-12)
		assert.InDelta(t, 36.0, smp.Lat, 1e-12)
	}
	assert.Equal(t, path[0], samples[0].Coordinates)
	assert.Equal(t, path[1], samples[4].Coordinates)
	assert.Equal(t, 0.0, samples[0].CumulativeMeters)
	assert.InDelta(t, spatial.Haversine(path[0], path[1]), samples[4].CumulativeMeters, 1e-6)
}

func TestIndexSamplerManyPoints(t *testing.T) {
	s, err := NewIndexSampler(3, nil)
	require.NoError(t, err)

	path := straightPath(40, -100, -99, 11)
	samples := s.Sample(path)

	require.Len(t, samples, 3)
	assert.Equal(t, path[0], samples[0].Coordinates)
	assert.Equal(t, path[5], samples[1].Coordinates)
	assert.Equal(t, path[10], samples[2].Coordinates)
}

func TestIndexSamplerRejectsSingleSample(t *testing.T) {
	_, err := NewIndexSampler(1, nil)
	assert.Error(t, err)
}

func TestDistanceSamplerStep(t *testing.T) {
	s, err := NewDistanceSampler(500, spatial.Haversine)
	require.NoError(t, err)

	// Roughly 8.5 km along a parallel.
	path := straightPath(39, -105, -104.9, 7)
	total := spatial.CumulativeDistances(path, spatial.Haversine)[6]

	samples := s.Sample(path)
	steps := int(total / 500)
	require.Len(t, samples, steps+1)

	assert.Equal(t, path[0], samples[0].Coordinates)
	assert.InDelta(t, path[6].Lon, samples[len(samples)-1].Lon, 1e-9)
	for i := 1; i < len(samples); i++ {
		gap := samples[i].CumulativeMeters - samples[i-1].CumulativeMeters
		assert.InDelta(t, total/float64(steps), gap, 1e-6)
		assert.Greater(t, samples[i].Lon, samples[i-1].Lon)
	}
}

func TestDistanceSamplerShortManeuverYieldsEndpoints(t *testing.T) {
	s, err := NewDistanceSampler(500, spatial.Haversine)
	require.NoError(t, err)

	path := []domain.Coordinates{{Lat: 39, Lon: -105}, {Lat: 39, Lon: -104.999}}
	samples := s.Sample(path)

	require.Len(t, samples, 2)
	assert.Equal(t, path[0], samples[0].Coordinates)
	assert.InDelta(t, path[1].Lon, samples[1].Lon, 1e-12)
}

func TestDistanceSamplerCoincidentPoints(t *testing.T) {
	s, err := NewDistanceSampler(500, spatial.Equirectangular)
	require.NoError(t, err)

	p := domain.Coordinates{Lat: 39, Lon: -105}
	samples := s.Sample([]domain.Coordinates{p, p, p})
	require.Len(t, samples, 2)
	assert.Equal(t, p, samples[0].Coordinates)
	assert.Equal(t, p, samples[1].Coordinates)
}

func TestSamplersOnePointSlice(t *testing.T) {
	p := domain.Coordinates{Lat: 35, Lon: -90}
	idx, _ := NewIndexSampler(5, nil)
	dist, _ := NewDistanceSampler(500, nil)

	for _, s := range []Sampler{idx, dist} {
		samples := s.Sample([]domain.Coordinates{p})
		require.Len(t, samples, 1)
		assert.Equal(t, p, samples[0].Coordinates)
		assert.Empty(t, s.Sample(nil))
	}
}

func TestSamplersAreDeterministic(t *testing.T) {
	path := straightPath(41, -88, -87.5, 23)
	idx, _ := NewIndexSampler(5, nil)
	dist, _ := NewDistanceSampler(500, nil)

	for _, s := range []Sampler{idx, dist} {
		assert.Equal(t, s.Sample(path), s.Sample(path))
	}
}
