package spatial

import (
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// InteriorCells returns the keys of every cell at the keyer's level lying
// entirely inside geom. Cells straddling the boundary are left out so the
// lazy geocoder path resolves them.
func (k Keyer) InteriorCells(geom orb.Geometry) ([]string, error) {
	var polys []orb.Polygon
	switch g := geom.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
	default:
		return nil, fmt.Errorf("interior cells: unsupported geometry %T", geom)
	}

	coverer := &s2.RegionCoverer{
		MinLevel: k.level,
		MaxLevel: k.level,
		MaxCells: 1 << 30,
	}

	seen := make(map[s2.CellID]struct{})
	out := make([]string, 0)
	for _, p := range polys {
		poly, err := toS2Polygon(p)
		if err != nil {
			return nil, err
		}
		for _, id := range coverer.InteriorCovering(poly) {
			for c := id.ChildBeginAtLevel(k.level); c != id.ChildEndAtLevel(k.level); c = c.Next() {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				out = append(out, c.ToToken())
			}
		}
	}

	return out, nil
}

func toS2Polygon(p orb.Polygon) (*s2.Polygon, error) {
	loops := make([]*s2.Loop, 0, len(p))
	for i, ring := range p {
		pts := make([]s2.Point, 0, len(ring))
		for j, pt := range ring {
			// GeoJSON rings repeat the first vertex; s2 loops must not.
			if j == len(ring)-1 && len(ring) > 1 && pt == ring[0] {
				break
			}
			pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(pt[1], pt[0])))
		}
		if len(pts) < 3 {
			return nil, fmt.Errorf("ring %d has %d distinct vertices", i, len(pts))
		}
		loop := s2.LoopFromPoints(pts)
		// Normalize fixes clockwise rings so the loop encloses the smaller area.
		loop.Normalize()
		loops = append(loops, loop)
	}
	return s2.PolygonFromLoops(loops), nil
}
