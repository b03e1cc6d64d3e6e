package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"state-time-service/internal/adapters/routing"
	"state-time-service/internal/api/dto"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/obs"
	"state-time-service/internal/services"
	"strings"
)

type AttributeHandler struct {
	Pipelines   map[services.Mode]*services.Pipeline
	DefaultMode services.Mode
}

// Attribute splits one Valhalla route response (the request body) across
// states. Query parameters: mode, vehicle_id, trip_id.
func (h *AttributeHandler) Attribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	mode := h.DefaultMode
	if m := strings.TrimSpace(r.URL.Query().Get("mode")); m != "" {
		parsed, err := services.ParseMode(m)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	p, ok := h.Pipelines[mode]
	if !ok {
		writeError(w, r, http.StatusBadRequest, "mode not enabled: "+string(mode))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read body")
		return
	}

	key := domain.TripKey{
		VehicleID: strings.TrimSpace(r.URL.Query().Get("vehicle_id")),
		TripID:    strings.TrimSpace(r.URL.Query().Get("trip_id")),
	}
	if key.TripID == "" {
		key.TripID = "request"
	}
	if key.VehicleID == "" {
		key.VehicleID = key.TripID
	}

	route, err := routing.ParseRoute(key, body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := p.AttributeRoute(r.Context(), route)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedShape),
			errors.Is(err, domain.ErrInvalidManeuver),
			errors.Is(err, domain.ErrEmptyRoute):
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Printf("req_id=%s level=error op=api.Attribute trip=%s err=%v",
				obs.RequestID(r.Context()), key, err)
			writeError(w, r, http.StatusInternalServerError, "attribution failed")
		}
		return
	}

	out := dto.AttributeResponse{
		VehicleID:         res.VehicleID,
		TripID:            res.TripID,
		Mode:              string(mode),
		LegSecondsTotal:   res.LegSecondsTotal,
		TotalDriveSeconds: res.DriveSeconds(),
		Maneuvers:         res.Maneuvers,
		Samples:           res.Samples,
		CacheHits:         res.CacheHits,
		Allocations:       make([]dto.StateAllocationResponse, 0, len(res.Allocations)),
	}
	for _, a := range res.Allocations {
		out.Allocations = append(out.Allocations, dto.StateAllocationResponse{
			State:         a.State,
			DriveSeconds:  a.DriveSeconds,
			ManeuverCount: a.ManeuverCount,
		})
	}

	writeJSON(w, r, http.StatusOK, out)
}
