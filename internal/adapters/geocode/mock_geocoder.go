package geocode

import (
	"context"
	"state-time-service/internal/domain"
	"sync/atomic"
)

// Band assigns State to every coordinate with longitude below MaxLon.
type Band struct {
	MaxLon float64
	State  string
}

// MockGeocoder resolves states from longitude bands, west to east.
// Coordinates east of the last band have no match.
type MockGeocoder struct {
	bands []Band
	err   error
	calls atomic.Int64
}

func NewMockGeocoder(bands []Band) *MockGeocoder {
	return &MockGeocoder{bands: bands}
}

// NewFailingGeocoder returns a geocoder whose every call fails with err.
func NewFailingGeocoder(err error) *MockGeocoder {
	return &MockGeocoder{err: err}
}

func (g *MockGeocoder) ReverseState(ctx context.Context, c domain.Coordinates) (string, bool, error) {
	g.calls.Add(1)
	if g.err != nil {
		return "", false, g.err
	}
	for _, b := range g.bands {
		if c.Lon < b.MaxLon {
			return b.State, true, nil
		}
	}
	return "", false, nil
}

// Calls returns how many lookups reached the geocoder.
func (g *MockGeocoder) Calls() int { return int(g.calls.Load()) }
