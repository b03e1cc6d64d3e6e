package ports

import (
	"context"
	"state-time-service/internal/domain"
)

// Contract for resolving a coordinate to a state code.
type ReverseGeocoder interface {
	// Return the state code for a coordinate. found is false when the
	// coordinate lies outside any covered state (water, foreign territory).
	// A non-nil error signals a transport or service failure.
	ReverseState(ctx context.Context, c domain.Coordinates) (state string, found bool, err error)
}
