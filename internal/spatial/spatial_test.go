package spatial

import (
	"math"
	"state-time-service/internal/domain"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForResolution(t *testing.T) {
	level, err := LevelForResolution(DefaultResolution)
	require.NoError(t, err)
	assert.Equal(t, 15, level)

	_, err = LevelForResolution(16)
	assert.Error(t, err)
	_, err = LevelForResolution(-1)
	assert.Error(t, err)
}

func TestKeyerSharesCellForNearbyPoints(t *testing.T) {
	k, err := NewKeyer(DefaultResolution)
	require.NoError(t, err)

	a := domain.Coordinates{Lat: 39.7392, Lon: -104.9903}
	assert.Equal(t, k.Key(a), k.Key(a), "keys must be deterministic")

	far := domain.Coordinates{Lat: 39.80, Lon: -104.9903}
	assert.NotEqual(t, k.Key(a), k.Key(far))

	center, err := Center(k.Key(a))
	require.NoError(t, err)
	assert.Less(t, Haversine(a, center), 500.0, "cell center should be within a cell diameter")
	assert.Equal(t, k.Key(a), k.Key(center))
}

func TestCenterRejectsGarbage(t *testing.T) {
	_, err := Center("not-a-token")
	assert.Error(t, err)
}

func TestHaversineNewYorkToLosAngeles(t *testing.T) {
	ny := domain.Coordinates{Lat: 40.7128, Lon: -74.0060}
	la := domain.Coordinates{Lat: 34.0522, Lon: -118.2437}

	d := Haversine(ny, la)
	assert.InDelta(t, 3_940_000, d, 20_000)
}

func TestEquirectangularMatchesHaversineOnShortSpans(t *testing.T) {
	a := domain.Coordinates{Lat: 41.0, Lon: -100.0}
	b := domain.Coordinates{Lat: 41.004, Lon: -100.003}

	h := Haversine(a, b)
	e := Equirectangular(a, b)
	assert.InDelta(t, h, e, h*3e-3)
}

func TestMetricByName(t *testing.T) {
	m, err := MetricByName("")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = MetricByName("manhattan")
	assert.Error(t, err)
}

func TestCumulativeDistances(t *testing.T) {
	path := []domain.Coordinates{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
		{Lat: 0, Lon: 0.02},
	}
	d := CumulativeDistances(path, Equirectangular)
	require.Len(t, d, 3)
	assert.Equal(t, 0.0, d[0])
	assert.InDelta(t, 2*d[1], d[2], 1e-6)
	assert.Nil(t, CumulativeDistances(nil, Haversine))
}

func TestInteriorCellsStayInsidePolygon(t *testing.T) {
	k, err := NewKeyer(DefaultResolution)
	require.NoError(t, err)

	square := orb.Polygon{orb.Ring{
		{-105.0, 39.0}, {-104.9, 39.0}, {-104.9, 39.1}, {-105.0, 39.1}, {-105.0, 39.0},
	}}

	cells, err := k.InteriorCells(square)
	require.NoError(t, err)
	require.NotEmpty(t, cells)

	for _, c := range cells {
		center, err := Center(c)
		require.NoError(t, err)
		assert.True(t, center.Lat > 39.0 && center.Lat < 39.1 && center.Lon > -105.0 && center.Lon < -104.9,
			"cell %s center %v outside polygon", c, center)
	}
}

func TestInteriorCellsRejectsLines(t *testing.T) {
	k, err := NewKeyer(DefaultResolution)
	require.NoError(t, err)

	_, err = k.InteriorCells(orb.LineString{{0, 0}, {1, 1}})
	assert.Error(t, err)
}

func TestLerp(t *testing.T) {
	p := Lerp(domain.Coordinates{Lat: 0, Lon: 0}, domain.Coordinates{Lat: 2, Lon: 4}, 0.25)
	assert.True(t, math.Abs(p.Lat-0.5) < 1e-12 && math.Abs(p.Lon-1) < 1e-12)
}
