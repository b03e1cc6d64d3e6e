package ports

import (
	"context"
	"state-time-service/internal/domain"
)

// Port: receives per-trip attribution results as they complete.
type AllocationSink interface {
	WriteTrip(ctx context.Context, result domain.TripResult) error
}
