package output

import (
	"fmt"
	"state-time-service/internal/domain"
	"state-time-service/internal/services"
	"strconv"
)

type allocationRow struct {
	VehicleID       string  `parquet:"vehicle_id" json:"vehicle_id"`
	TripID          string  `parquet:"trip_id" json:"trip_id"`
	State           string  `parquet:"state" json:"state"`
	DriveSeconds    float64 `parquet:"drive_seconds" json:"drive_seconds"`
	ManeuverCount   int64   `parquet:"maneuver_count" json:"maneuver_count"`
	LegSecondsTotal float64 `parquet:"leg_seconds_total" json:"leg_seconds_total"`
}

func allocationRows(allocs []domain.StateAllocation) []allocationRow {
	out := make([]allocationRow, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, allocationRow{
			VehicleID:       a.VehicleID,
			TripID:          a.TripID,
			State:           a.State,
			DriveSeconds:    a.DriveSeconds,
			ManeuverCount:   int64(a.ManeuverCount),
			LegSecondsTotal: a.LegSecondsTotal,
		})
	}
	return out
}

func (r allocationRow) csvRecord() []string {
	return []string{r.VehicleID, r.TripID, r.State, ftoa(r.DriveSeconds), strconv.FormatInt(r.ManeuverCount, 10), ftoa(r.LegSecondsTotal)}
}

var allocationHeader = []string{"vehicle_id", "trip_id", "state", "drive_seconds", "maneuver_count", "leg_seconds_total"}

type stateTotalRow struct {
	State             string  `parquet:"state"`
	TotalDriveSeconds float64 `parquet:"total_drive_seconds"`
	NumTrips          int64   `parquet:"num_trips"`
	TotalDriveHours   float64 `parquet:"total_drive_hours"`
	AvgHoursPerTrip   float64 `parquet:"avg_hours_per_trip"`
}

func stateTotalRows(totals []services.StateTotal) []stateTotalRow {
	out := make([]stateTotalRow, 0, len(totals))
	for _, s := range totals {
		out = append(out, stateTotalRow{
			State:             s.State,
			TotalDriveSeconds: s.TotalDriveSeconds,
			NumTrips:          int64(s.NumTrips),
			TotalDriveHours:   s.TotalDriveHours,
			AvgHoursPerTrip:   s.AvgHoursPerTrip,
		})
	}
	return out
}

func (r stateTotalRow) csvRecord() []string {
	return []string{r.State, ftoa(r.TotalDriveSeconds), strconv.FormatInt(r.NumTrips, 10), ftoa(r.TotalDriveHours), ftoa(r.AvgHoursPerTrip)}
}

var stateTotalHeader = []string{"state", "total_drive_seconds", "num_trips", "total_drive_hours", "avg_hours_per_trip"}

type tripTotalRow struct {
	VehicleID         string  `parquet:"vehicle_id"`
	TripID            string  `parquet:"trip_id"`
	TotalDriveSeconds float64 `parquet:"total_drive_seconds"`
	NumStates         int64   `parquet:"num_states"`
	TotalDriveHours   float64 `parquet:"total_drive_hours"`
}

func tripTotalRows(totals []services.TripTotal) []tripTotalRow {
	out := make([]tripTotalRow, 0, len(totals))
	for _, t := range totals {
		out = append(out, tripTotalRow{
			VehicleID:         t.VehicleID,
			TripID:            t.TripID,
			TotalDriveSeconds: t.TotalDriveSeconds,
			NumStates:         int64(t.NumStates),
			TotalDriveHours:   t.TotalDriveHours,
		})
	}
	return out
}

func (r tripTotalRow) csvRecord() []string {
	return []string{r.VehicleID, r.TripID, ftoa(r.TotalDriveSeconds), strconv.FormatInt(r.NumStates, 10), ftoa(r.TotalDriveHours)}
}

var tripTotalHeader = []string{"vehicle_id", "trip_id", "total_drive_seconds", "num_states", "total_drive_hours"}

type modeDiffRow struct {
	TripID         string   `parquet:"trip_id"`
	State          string   `parquet:"state"`
	FastSeconds    float64  `parquet:"fast_seconds"`
	PreciseSeconds float64  `parquet:"precise_seconds"`
	DifferenceSec  float64  `parquet:"difference_sec"`
	PctDiff        *float64 `parquet:"pct_diff,optional"`
}

func modeDiffRows(diffs []services.ModeDiff) []modeDiffRow {
	out := make([]modeDiffRow, 0, len(diffs))
	for _, d := range diffs {
		r := modeDiffRow{
			TripID:         d.TripID,
			State:          d.State,
			FastSeconds:    d.FastSeconds,
			PreciseSeconds: d.PreciseSeconds,
			DifferenceSec:  d.DifferenceSec,
		}
		if d.HasPctDiff {
			pct := d.PctDiff
			r.PctDiff = &pct
		}
		out = append(out, r)
	}
	return out
}

func (r modeDiffRow) csvRecord() []string {
	pct := ""
	if r.PctDiff != nil {
		pct = ftoa(*r.PctDiff)
	}
	return []string{r.TripID, r.State, ftoa(r.FastSeconds), ftoa(r.PreciseSeconds), ftoa(r.DifferenceSec), pct}
}

var modeDiffHeader = []string{"trip_id", "state", "fast_seconds", "precise_seconds", "difference_sec", "pct_diff"}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// thresholdLabel renders 3600 as "1h" and 90 as "90s".
func thresholdLabel(seconds float64) string {
	if seconds > 0 && int64(seconds)%3600 == 0 && float64(int64(seconds)) == seconds {
		return fmt.Sprintf("%dh", int64(seconds)/3600)
	}
	return fmt.Sprintf("%ss", ftoa(seconds))
}
