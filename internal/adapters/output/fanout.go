package output

import (
	"context"
	"errors"
	"state-time-service/internal/domain"
	"state-time-service/internal/ports"
)

// FanOut writes each trip to every sink. All sinks are attempted; their
// errors are joined.
type FanOut []ports.AllocationSink

func (f FanOut) WriteTrip(ctx context.Context, result domain.TripResult) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.WriteTrip(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
