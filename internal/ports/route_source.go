package ports

import (
	"context"
	"state-time-service/internal/domain"
)

// Names a route available from a RouteSource.
type RouteRef struct {
	Name string
	domain.TripKey
}

// Port: a boundary for retrieving routed trips.
type RouteSource interface {
	// List routes available for attribution, in a stable order.
	ListRoutes(ctx context.Context) ([]RouteRef, error)
	// Load a single route.
	LoadRoute(ctx context.Context, ref RouteRef) (*domain.Route, error)
}
