package services

import (
	"sort"
	"state-time-service/internal/domain"
)

const DefaultTimeThresholdSeconds = 3600.0

// Per-state totals across the corpus.
type StateTotal struct {
	State             string
	TotalDriveSeconds float64
	NumTrips          int
	TotalDriveHours   float64
	AvgHoursPerTrip   float64
}

// Per-trip totals across states.
type TripTotal struct {
	VehicleID         string
	TripID            string
	TotalDriveSeconds float64
	NumStates         int
	TotalDriveHours   float64
}

// Reduced view of a run.
type Summary struct {
	Allocations []domain.StateAllocation
	StateTotals []StateTotal
	TripTotals  []TripTotal
	// Allocations with DriveSeconds >= ThresholdSeconds.
	Filtered         []domain.StateAllocation
	ThresholdSeconds float64
}

type allocationKey struct {
	vehicleID string
	tripID    string
	state     string
}

// Aggregate sums state allocations by (vehicle, trip, state).
//
// Adding and merging are associative and commutative, so partial
// aggregates built per worker can be merged in any order. An Aggregate is
// not safe for concurrent use; give each worker its own and Merge them.
type Aggregate struct {
	rows map[allocationKey]*domain.StateAllocation
}

func NewAggregate() *Aggregate {
	return &Aggregate{rows: make(map[allocationKey]*domain.StateAllocation)}
}

// Add folds one trip's allocations into the aggregate.
func (a *Aggregate) Add(result domain.TripResult) {
	for _, alloc := range result.Allocations {
		a.addAllocation(alloc)
	}
}

func (a *Aggregate) addAllocation(alloc domain.StateAllocation) {
	k := allocationKey{vehicleID: alloc.VehicleID, tripID: alloc.TripID, state: alloc.State}
	row, ok := a.rows[k]
	if !ok {
		cp := alloc
		a.rows[k] = &cp
		return
	}
	row.DriveSeconds += alloc.DriveSeconds
	row.ManeuverCount += alloc.ManeuverCount
	if alloc.LegSecondsTotal > row.LegSecondsTotal {
		row.LegSecondsTotal = alloc.LegSecondsTotal
	}
}

// Merge folds other into a. other is left unchanged.
func (a *Aggregate) Merge(other *Aggregate) {
	if other == nil {
		return
	}
	for _, row := range other.rows {
		a.addAllocation(*row)
	}
}

// Len returns the number of (vehicle, trip, state) rows.
func (a *Aggregate) Len() int { return len(a.rows) }

// Summarize produces the corpus views with a deterministic row order.
func (a *Aggregate) Summarize(thresholdSeconds float64) *Summary {
	allocs := make([]domain.StateAllocation, 0, len(a.rows))
	for _, r := range a.rows {
		allocs = append(allocs, *r)
	}
	sort.Slice(allocs, func(i, j int) bool {
		if allocs[i].TripID != allocs[j].TripID {
			return allocs[i].TripID < allocs[j].TripID
		}
		if allocs[i].VehicleID != allocs[j].VehicleID {
			return allocs[i].VehicleID < allocs[j].VehicleID
		}
		return allocs[i].State < allocs[j].State
	})

	type tripKey struct{ vehicleID, tripID string }
	byState := make(map[string]*StateTotal)
	stateTrips := make(map[string]map[tripKey]struct{})
	byTrip := make(map[tripKey]*TripTotal)

	filtered := make([]domain.StateAllocation, 0)
	for _, r := range allocs {
		st, ok := byState[r.State]
		if !ok {
			st = &StateTotal{State: r.State}
			byState[r.State] = st
			stateTrips[r.State] = make(map[tripKey]struct{})
		}
		st.TotalDriveSeconds += r.DriveSeconds
		stateTrips[r.State][tripKey{r.VehicleID, r.TripID}] = struct{}{}

		tk := tripKey{r.VehicleID, r.TripID}
		tt, ok := byTrip[tk]
		if !ok {
			tt = &TripTotal{VehicleID: r.VehicleID, TripID: r.TripID}
			byTrip[tk] = tt
		}
		tt.TotalDriveSeconds += r.DriveSeconds
		tt.NumStates++

		if r.DriveSeconds >= thresholdSeconds {
			filtered = append(filtered, r)
		}
	}

	states := make([]StateTotal, 0, len(byState))
	for s, st := range byState {
		st.NumTrips = len(stateTrips[s])
		st.TotalDriveHours = st.TotalDriveSeconds / 3600
		if st.NumTrips > 0 {
			st.AvgHoursPerTrip = st.TotalDriveHours / float64(st.NumTrips)
		}
		states = append(states, *st)
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].TotalDriveSeconds != states[j].TotalDriveSeconds {
			return states[i].TotalDriveSeconds > states[j].TotalDriveSeconds
		}
		return states[i].State < states[j].State
	})

	trips := make([]TripTotal, 0, len(byTrip))
	for _, tt := range byTrip {
		tt.TotalDriveHours = tt.TotalDriveSeconds / 3600
		trips = append(trips, *tt)
	}
	sort.Slice(trips, func(i, j int) bool {
		if trips[i].TotalDriveSeconds != trips[j].TotalDriveSeconds {
			return trips[i].TotalDriveSeconds > trips[j].TotalDriveSeconds
		}
		if trips[i].TripID != trips[j].TripID {
			return trips[i].TripID < trips[j].TripID
		}
		return trips[i].VehicleID < trips[j].VehicleID
	})

	return &Summary{
		Allocations:      allocs,
		StateTotals:      states,
		TripTotals:       trips,
		Filtered:         filtered,
		ThresholdSeconds: thresholdSeconds,
	}
}
