// Package spatial holds the geometry primitives shared by the sampler,
// classifier and cell map builder: spatial cell keys, along-path distance,
// and polygon coverings.
package spatial

import (
	"fmt"
	"state-time-service/internal/domain"

	"github.com/golang/geo/s2"
)

const (
	MinResolution     = 0
	MaxResolution     = 15
	DefaultResolution = 9
)

// S2 level whose average cell area is closest to the average hexagon area
// at each H3 resolution. Resolution 9 (~0.105 km²) maps to level 15 (~0.079 km²).
var resolutionLevels = [MaxResolution + 1]int{2, 4, 5, 6, 8, 9, 11, 12, 13, 15, 16, 18, 19, 20, 22, 23}

// LevelForResolution maps a cell resolution to an S2 cell level.
func LevelForResolution(resolution int) (int, error) {
	if resolution < MinResolution || resolution > MaxResolution {
		return 0, fmt.Errorf("cell resolution %d out of range [%d, %d]", resolution, MinResolution, MaxResolution)
	}
	return resolutionLevels[resolution], nil
}

// Keyer derives fixed-level cell keys from coordinates.
type Keyer struct {
	resolution int
	level      int
}

func NewKeyer(resolution int) (Keyer, error) {
	level, err := LevelForResolution(resolution)
	if err != nil {
		return Keyer{}, err
	}
	return Keyer{resolution: resolution, level: level}, nil
}

func (k Keyer) Resolution() int { return k.resolution }
func (k Keyer) Level() int      { return k.level }

// CellID returns the cell containing c.
func (k Keyer) CellID(c domain.Coordinates) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)).Parent(k.level)
}

// Key returns the cache key for the cell containing c.
func (k Keyer) Key(c domain.Coordinates) string {
	return k.CellID(c).ToToken()
}

// Center returns the center of the cell identified by key.
func Center(key string) (domain.Coordinates, error) {
	id := s2.CellIDFromToken(key)
	if !id.IsValid() {
		return domain.Coordinates{}, fmt.Errorf("invalid cell key %q", key)
	}
	ll := id.LatLng()
	return domain.Coordinates{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}, nil
}
