package geocode

import (
	"context"
	"errors"
	"state-time-service/internal/domain"
	"state-time-service/internal/ports"
)

// Chain asks each geocoder in order and returns the first match.
// An error from one geocoder is remembered and the next is tried; it is
// returned only if no later geocoder finds a match.
type Chain []ports.ReverseGeocoder

func (c Chain) ReverseState(ctx context.Context, p domain.Coordinates) (string, bool, error) {
	var errs []error
	for _, g := range c {
		if g == nil {
			continue
		}
		s, found, err := g.ReverseState(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if found {
			return s, true, nil
		}
	}
	return "", false, errors.Join(errs...)
}
