package handlers

import (
	"fmt"
	"net/http"
	"state-time-service/internal/api/dto"
	"state-time-service/internal/domain"
	"state-time-service/internal/services"
	"time"
)

const maxClassifyPoints = 100_000

type ClassifyHandler struct {
	Classifier *services.Classifier
}

// ClassifyPoints maps parallel lat/lon arrays to state codes.
func (h *ClassifyHandler) ClassifyPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.ClassifyPointsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Lat) != len(req.Lon) {
		writeError(w, r, http.StatusBadRequest, "lat and lon arrays must have same length")
		return
	}
	if len(req.Lat) > maxClassifyPoints {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("at most %d points per request", maxClassifyPoints))
		return
	}

	points := make([]domain.Coordinates, len(req.Lat))
	for i := range req.Lat {
		points[i] = domain.Coordinates{Lat: req.Lat[i], Lon: req.Lon[i]}
		if err := points[i].Validate(); err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("point %d: %v", i, err))
			return
		}
	}

	start := time.Now()
	res := dto.ClassifyPointsResponse{
		States: make([]string, len(points)),
		Cells:  make([]string, len(points)),
	}
	hits := 0
	for i, p := range points {
		state, hit := h.Classifier.Classify(r.Context(), p)
		if hit {
			hits++
		}
		res.States[i] = state
		res.Cells[i] = h.Classifier.Keyer().Key(p)
	}
	elapsed := time.Since(start).Seconds()

	res.Metadata = dto.ClassifyMetadata{
		TotalPoints: len(points),
		CacheHits:   hits,
		CacheMisses: len(points) - hits,
	}
	res.Performance.ClassificationTimeSec = elapsed
	if elapsed > 0 {
		res.Performance.ThroughputPtsSec = int(float64(len(points)) / elapsed)
	}

	writeJSON(w, r, http.StatusOK, res)
}
