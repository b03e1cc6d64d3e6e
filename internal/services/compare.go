package services

import "sort"

// One (trip, state) row of a fast vs precise comparison.
type ModeDiff struct {
	TripID         string
	State          string
	FastSeconds    float64
	PreciseSeconds float64
	DifferenceSec  float64
	PctDiff        float64
	HasPctDiff     bool
}

// CompareSummaries full-joins two runs on (trip, state). Missing rows count
// as zero seconds. PctDiff is relative to the precise value and only set
// when that value is positive.
func CompareSummaries(fast, precise *Summary) []ModeDiff {
	type key struct{ trip, state string }
	rows := make(map[key]*ModeDiff)

	get := func(k key) *ModeDiff {
		d, ok := rows[k]
		if !ok {
			d = &ModeDiff{TripID: k.trip, State: k.state}
			rows[k] = d
		}
		return d
	}

	if fast != nil {
		for _, a := range fast.Allocations {
			get(key{a.TripID, a.State}).FastSeconds += a.DriveSeconds
		}
	}
	if precise != nil {
		for _, a := range precise.Allocations {
			get(key{a.TripID, a.State}).PreciseSeconds += a.DriveSeconds
		}
	}

	out := make([]ModeDiff, 0, len(rows))
	for _, d := range rows {
		d.DifferenceSec = d.PreciseSeconds - d.FastSeconds
		if d.PreciseSeconds > 0 {
			d.PctDiff = d.DifferenceSec / d.PreciseSeconds * 100
			d.HasPctDiff = true
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TripID != out[j].TripID {
			return out[i].TripID < out[j].TripID
		}
		return out[i].State < out[j].State
	})

	return out
}
