package handlers

import (
	"net/http"
	"state-time-service/internal/api/dto"
	"state-time-service/internal/services"
	"time"
)

type HealthHandler struct {
	Classifier *services.Classifier
}

// Health reports liveness and the state of the cell cache.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := dto.HealthResponse{
		Status:    "ok",
		Service:   "state-time-service",
		Timestamp: time.Now().Unix(),
	}
	if h.Classifier != nil {
		res.CellResolution = h.Classifier.Keyer().Resolution()
		res.CellLevel = h.Classifier.Keyer().Level()
		res.CacheSize = h.Classifier.Cache().Len()
	}
	writeJSON(w, r, http.StatusOK, res)
}
