package spatial

import (
	"fmt"
	"math"
	"state-time-service/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const EarthRadiusMeters = 6371000.0

// Metric measures the distance in meters between two coordinates.
type Metric func(a, b domain.Coordinates) float64

const (
	MetricHaversine       = "haversine"
	MetricEquirectangular = "equirectangular"
)

// MetricByName resolves a configured distance metric.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", MetricHaversine:
		return Haversine, nil
	case MetricEquirectangular:
		return Equirectangular, nil
	default:
		return nil, fmt.Errorf("unknown distance metric %q", name)
	}
}

// Haversine is the great-circle distance.
func Haversine(a, b domain.Coordinates) float64 {
	return geo.DistanceHaversine(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}

// Equirectangular projects both points onto a plane tangent at their mean
// latitude. Accurate for the short spans between consecutive shape points.
func Equirectangular(a, b domain.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }

	meanLat := toRad((a.Lat + b.Lat) / 2)
	dx := toRad(b.Lon-a.Lon) * math.Cos(meanLat)
	dy := toRad(b.Lat - a.Lat)
	return EarthRadiusMeters * math.Hypot(dx, dy)
}

// CumulativeDistances returns the along-path distance from the first point
// to each point of path. The result has len(path) entries.
func CumulativeDistances(path []domain.Coordinates, metric Metric) []float64 {
	if len(path) == 0 {
		return nil
	}
	out := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		out[i] = out[i-1] + metric(path[i-1], path[i])
	}
	return out
}

// Lerp interpolates linearly between a and b; t=0 yields a, t=1 yields b.
func Lerp(a, b domain.Coordinates, t float64) domain.Coordinates {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return domain.Coordinates{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
}
