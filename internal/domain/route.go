package domain

import "fmt"

// A routing-engine segment of a route: an inclusive range of shape indices
// and the modeled time to drive it.
type Maneuver struct {
	BeginIndex int
	EndIndex   int
	Seconds    float64
}

// Validate checks the maneuver against a decoded shape of shapeLen points.
// EndIndex == shapeLen is tolerated and treated as the last point.
func (m Maneuver) Validate(shapeLen int) error {
	if m.BeginIndex < 0 || m.EndIndex < m.BeginIndex || m.EndIndex > shapeLen {
		return fmt.Errorf(
			"%w: begin=%d end=%d shape_len=%d",
			ErrInvalidManeuver, m.BeginIndex, m.EndIndex, shapeLen,
		)
	}
	if m.BeginIndex >= shapeLen {
		return fmt.Errorf(
			"%w: begin=%d beyond shape_len=%d",
			ErrInvalidManeuver, m.BeginIndex, shapeLen,
		)
	}
	if m.Seconds < 0 {
		return fmt.Errorf("%w: negative time %v", ErrInvalidManeuver, m.Seconds)
	}
	return nil
}

// Identifies a route across the system.
type TripKey struct {
	VehicleID string
	TripID    string
}

func (k TripKey) String() string { return k.VehicleID + "/" + k.TripID }

// Represents one routed trip as returned by the routing engine.
// A Route is immutable once loaded; all maneuvers share one encoded shape.
type Route struct {
	TripKey
	Shape      string
	Maneuvers  []Maneuver
	LegSeconds float64
}

// Sum of modeled maneuver time.
func (r *Route) ManeuverSeconds() float64 {
	total := 0.0
	for _, m := range r.Maneuvers {
		total += m.Seconds
	}
	return total
}

// LegSecondsTotal returns the routing summary time, falling back to the
// maneuver sum when the engine did not report one.
func (r *Route) LegSecondsTotal() float64 {
	if r.LegSeconds > 0 {
		return r.LegSeconds
	}
	return r.ManeuverSeconds()
}
