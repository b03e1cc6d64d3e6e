package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as [lon, lat] for GeoJSON-style APIs.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Validate reports whether the coordinates are finite and within WGS84 bounds.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("coordinates: non-finite value lat=%v lon=%v", c.Lat, c.Lon)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("coordinates: latitude %v out of range", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("coordinates: longitude %v out of range", c.Lon)
	}
	return nil
}

// A point generated along a maneuver's geometry. Samples only live for the
// duration of one maneuver's attribution.
type Sample struct {
	Coordinates
	CumulativeMeters float64
}
