package domain

const (
	// Unresolved tags a sample whose state could not be determined.
	// It is never emitted as an allocation state.
	Unresolved = "UNRESOLVED"

	// Unknown receives the time of maneuvers whose samples are all unresolved.
	Unknown = "UNK"
)

// Seconds assigned to one state for one maneuver.
type StateShare struct {
	State   string
	Seconds float64
}

// The output unit: time driven in one state during one trip.
type StateAllocation struct {
	VehicleID       string
	TripID          string
	State           string
	DriveSeconds    float64
	ManeuverCount   int
	LegSecondsTotal float64
}

// Attribution outcome for a single trip. Allocations are ordered by the
// first maneuver that touched each state.
type TripResult struct {
	TripKey
	Allocations     []StateAllocation
	LegSecondsTotal float64
	Maneuvers       int
	Samples         int
	// Samples answered by the cell cache without a geocoder call.
	CacheHits int
}

// Sum of allocated seconds across states.
func (r TripResult) DriveSeconds() float64 {
	total := 0.0
	for _, a := range r.Allocations {
		total += a.DriveSeconds
	}
	return total
}
