// Package output persists attribution results: Parquet and CSV files on
// disk, and a NATS stream of per-trip allocations.
package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/obs"
	"state-time-service/internal/services"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// DirWriter writes one run's results under Root:
//
//	by_trip/<vehicle>_<trip>.parquet
//	analytics/{allocations,state_totals,trip_summary,per_state_trip_ge<T>}.{parquet,csv}
//	run_summary.json
type DirWriter struct {
	Root string
}

func NewDirWriter(root string) (*DirWriter, error) {
	for _, d := range []string{root, filepath.Join(root, "by_trip"), filepath.Join(root, "analytics")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("new dir writer: %w", err)
		}
	}
	return &DirWriter{Root: root}, nil
}

// TripFileName is the by_trip file name for a trip.
func TripFileName(key domain.TripKey) string {
	return sanitize(key.VehicleID) + "_" + sanitize(key.TripID) + ".parquet"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		return r
	}, s)
}

// WriteTrip writes the trip's allocation rows. Trips with no allocations
// produce no file.
func (w *DirWriter) WriteTrip(ctx context.Context, result domain.TripResult) error {
	if len(result.Allocations) == 0 {
		return nil
	}
	path := filepath.Join(w.Root, "by_trip", TripFileName(result.TripKey))
	if err := parquet.WriteFile(path, allocationRows(result.Allocations)); err != nil {
		return fmt.Errorf("write trip %s: %w", result.TripKey, err)
	}
	return nil
}

// WriteSummary writes the corpus analytics tables.
func (w *DirWriter) WriteSummary(ctx context.Context, s *services.Summary) (err error) {
	defer obs.Time(ctx, "output.WriteSummary")(&err)

	dir := filepath.Join(w.Root, "analytics")

	allocs := allocationRows(s.Allocations)
	if err := writeTable(dir, "allocations", allocs, allocationHeader, allocationRow.csvRecord); err != nil {
		return err
	}

	states := stateTotalRows(s.StateTotals)
	if err := writeTable(dir, "state_totals", states, stateTotalHeader, stateTotalRow.csvRecord); err != nil {
		return err
	}

	trips := tripTotalRows(s.TripTotals)
	if err := writeTable(dir, "trip_summary", trips, tripTotalHeader, tripTotalRow.csvRecord); err != nil {
		return err
	}

	filtered := allocationRows(s.Filtered)
	name := "per_state_trip_ge" + thresholdLabel(s.ThresholdSeconds)
	return writeTable(dir, name, filtered, allocationHeader, allocationRow.csvRecord)
}

// WriteComparison writes fast_vs_precise.{parquet,csv} under dir.
func WriteComparison(ctx context.Context, dir string, diffs []services.ModeDiff) (err error) {
	defer obs.Time(ctx, "output.WriteComparison")(&err)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	return writeTable(dir, "fast_vs_precise", modeDiffRows(diffs), modeDiffHeader, modeDiffRow.csvRecord)
}

type failureRecord struct {
	Route        string `json:"route"`
	VehicleID    string `json:"vehicle_id"`
	TripID       string `json:"trip_id"`
	Reason       string `json:"reason"`
	Conservation bool   `json:"conservation"`
}

// RunRecord is the run_summary.json document.
type RunRecord struct {
	RunID                  string          `json:"run_id"`
	Mode                   string          `json:"mode"`
	StartedAt              time.Time       `json:"started_at"`
	FinishedAt             time.Time       `json:"finished_at"`
	Trips                  int             `json:"trips"`
	Succeeded              int             `json:"succeeded"`
	Failed                 int             `json:"failed"`
	ConservationViolations int             `json:"conservation_violations"`
	Maneuvers              int             `json:"maneuvers"`
	Samples                int             `json:"samples"`
	CacheHits              int             `json:"cache_hits"`
	CacheSize              int             `json:"cache_size"`
	NewCells               int             `json:"new_cells"`
	Failures               []failureRecord `json:"failures"`
}

func NewRunRecord(runID string, started, finished time.Time, st services.RunStats) RunRecord {
	r := RunRecord{
		RunID:                  runID,
		Mode:                   string(st.Mode),
		StartedAt:              started.UTC(),
		FinishedAt:             finished.UTC(),
		Trips:                  st.Trips,
		Succeeded:              st.Succeeded,
		Failed:                 st.Failed,
		ConservationViolations: st.ConservationViolations,
		Maneuvers:              st.Maneuvers,
		Samples:                st.Samples,
		CacheHits:              st.CacheHits,
		CacheSize:              st.CacheSize,
		NewCells:               st.NewCells,
		Failures:               make([]failureRecord, 0, len(st.Failures)),
	}
	for _, f := range st.Failures {
		r.Failures = append(r.Failures, failureRecord{
			Route:        f.Route.Name,
			VehicleID:    f.Route.VehicleID,
			TripID:       f.Route.TripID,
			Reason:       f.Reason,
			Conservation: f.Conservation,
		})
	}
	return r
}

// WriteRunRecord writes run_summary.json.
func (w *DirWriter) WriteRunRecord(r RunRecord) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Root, "run_summary.json"), append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

func writeTable[T any](dir, name string, rows []T, header []string, record func(T) []string) error {
	if err := parquet.WriteFile(filepath.Join(dir, name+".parquet"), rows); err != nil {
		return fmt.Errorf("write %s.parquet: %w", name, err)
	}

	f, err := os.Create(filepath.Join(dir, name+".csv"))
	if err != nil {
		return fmt.Errorf("write %s.csv: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s.csv: %w", name, err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("write %s.csv: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s.csv: %w", name, err)
	}

	return f.Close()
}
