// Package routing reads Valhalla route responses from disk or over HTTP.
package routing

import (
	"encoding/json"
	"fmt"
	"log"
	"state-time-service/internal/domain"
	"strings"
)

type valhallaManeuver struct {
	BeginShapeIndex *int    `json:"begin_shape_index"`
	EndShapeIndex   *int    `json:"end_shape_index"`
	Time            float64 `json:"time"`
}

type valhallaLeg struct {
	Shape     string             `json:"shape"`
	Maneuvers []valhallaManeuver `json:"maneuvers"`
	Summary   struct {
		Time float64 `json:"time"`
	} `json:"summary"`
}

type valhallaResponse struct {
	Trip struct {
		Legs []valhallaLeg `json:"legs"`
	} `json:"trip"`
}

// ParseRoute decodes a Valhalla /route response body into a Route.
// Only the first leg is used; additional legs are logged and ignored.
func ParseRoute(key domain.TripKey, body []byte) (*domain.Route, error) {
	var resp valhallaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse route %s: %w", key, err)
	}

	legs := resp.Trip.Legs
	if len(legs) == 0 {
		return nil, fmt.Errorf("parse route %s: no legs: %w", key, domain.ErrEmptyRoute)
	}
	if len(legs) > 1 {
		log.Printf("op=routing.ParseRoute trip=%s legs=%d using first leg only", key, len(legs))
	}

	leg := legs[0]
	if strings.TrimSpace(leg.Shape) == "" {
		return nil, fmt.Errorf("parse route %s: empty shape: %w", key, domain.ErrMalformedShape)
	}

	maneuvers := make([]domain.Maneuver, 0, len(leg.Maneuvers))
	for i, m := range leg.Maneuvers {
		if m.BeginShapeIndex == nil || m.EndShapeIndex == nil {
			return nil, fmt.Errorf("parse route %s: maneuver %d: missing shape index: %w",
				key, i, domain.ErrInvalidManeuver)
		}
		maneuvers = append(maneuvers, domain.Maneuver{
			BeginIndex: *m.BeginShapeIndex,
			EndIndex:   *m.EndShapeIndex,
			Seconds:    m.Time,
		})
	}

	route := &domain.Route{
		TripKey:   key,
		Shape:     leg.Shape,
		Maneuvers: maneuvers,
	}
	if leg.Summary.Time > 0 {
		route.LegSeconds = leg.Summary.Time
	}

	return route, nil
}

// TripKeyFromName derives vehicle and trip ids from a route name:
// "<vehicle>__<trip>" names both explicitly, "<A>_to_<B>" is a trip of
// vehicle <A>, anything else is its own vehicle and trip.
func TripKeyFromName(name string) domain.TripKey {
	if v, t, ok := strings.Cut(name, "__"); ok && v != "" && t != "" {
		return domain.TripKey{VehicleID: v, TripID: t}
	}
	if origin, _, ok := strings.Cut(name, "_to_"); ok && origin != "" {
		return domain.TripKey{VehicleID: origin, TripID: name}
	}
	return domain.TripKey{VehicleID: name, TripID: name}
}
