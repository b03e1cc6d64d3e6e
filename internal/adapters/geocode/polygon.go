package geocode

import (
	"context"
	"fmt"
	"os"
	"state-time-service/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// StateArea is one state boundary.
type StateArea struct {
	Code     string
	Geometry orb.Geometry
}

// PolygonGeocoder answers point-in-polygon queries over state boundaries,
// using an R-tree of bounding boxes to narrow the candidates.
//
// It never returns an error; points outside every area have no match.
type PolygonGeocoder struct {
	areas []StateArea
	tree  rtree.RTreeG[int]
}

func NewPolygonGeocoder(areas []StateArea) (*PolygonGeocoder, error) {
	g := &PolygonGeocoder{areas: make([]StateArea, 0, len(areas))}
	for _, a := range areas {
		switch a.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("state %q: unsupported geometry %T", a.Code, a.Geometry)
		}
		if a.Code == "" {
			return nil, fmt.Errorf("state area #%d: empty code", len(g.areas)+1)
		}

		b := a.Geometry.Bound()
		g.tree.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, len(g.areas))
		g.areas = append(g.areas, a)
	}
	return g, nil
}

// LoadStateAreas reads a GeoJSON FeatureCollection of state polygons.
// The state code is taken from the first present property among
// "state_code", "code" and "name"; a bare name is prefixed with the
// "country" property when set.
func LoadStateAreas(path string) ([]StateArea, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load state areas: read %q: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("load state areas: parse %q: %w", path, err)
	}

	areas := make([]StateArea, 0, len(fc.Features))
	for i, f := range fc.Features {
		code := f.Properties.MustString("state_code", "")
		if code == "" {
			code = f.Properties.MustString("code", "")
		}
		if code == "" {
			name := f.Properties.MustString("name", "")
			if name == "" {
				return nil, fmt.Errorf("load state areas: feature #%d has no state code", i+1)
			}
			code = name
			if cc, ok := StateCode(f.Properties.MustString("country", ""), name); ok {
				code = cc
			}
		}
		areas = append(areas, StateArea{Code: code, Geometry: f.Geometry})
	}

	return areas, nil
}

// NewPolygonGeocoderFromFile loads a GeoJSON file and indexes it.
func NewPolygonGeocoderFromFile(path string) (*PolygonGeocoder, error) {
	areas, err := LoadStateAreas(path)
	if err != nil {
		return nil, err
	}
	return NewPolygonGeocoder(areas)
}

// Areas returns the indexed state areas in load order.
func (g *PolygonGeocoder) Areas() []StateArea { return g.areas }

func (g *PolygonGeocoder) ReverseState(ctx context.Context, c domain.Coordinates) (string, bool, error) {
	pt := orb.Point{c.Lon, c.Lat}

	// Lowest index wins so overlapping areas resolve deterministically.
	match := -1
	g.tree.Search(pt, pt, func(min, max [2]float64, idx int) bool {
		if match >= 0 && idx > match {
			return true
		}
		if contains(g.areas[idx].Geometry, pt) {
			match = idx
		}
		return true
	})

	if match < 0 {
		return "", false, nil
	}
	return g.areas[match].Code, true, nil
}

func contains(geom orb.Geometry, pt orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	default:
		return false
	}
}
