package services

import (
	"fmt"
	"state-time-service/internal/domain"

	"github.com/twpayne/go-polyline"
)

// Valhalla encodes shapes with six decimal digits.
const DefaultShapePrecision = 6

// DecodeShape decodes an encoded polyline into ordered coordinates.
// A malformed polyline is a fatal input error and is never retried.
func DecodeShape(encoded string, precision int) ([]domain.Coordinates, error) {
	if encoded == "" {
		return nil, fmt.Errorf("decode shape: %w: empty polyline", domain.ErrMalformedShape)
	}
	if precision <= 0 {
		precision = DefaultShapePrecision
	}

	scale := 1.0
	for i := 0; i < precision; i++ {
		scale *= 10
	}

	codec := polyline.Codec{Dim: 2, Scale: scale}
	coords, rest, err := codec.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode shape: %w: %v", domain.ErrMalformedShape, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode shape: %w: %d trailing bytes", domain.ErrMalformedShape, len(rest))
	}

	out := make([]domain.Coordinates, 0, len(coords))
	for i, c := range coords {
		p := domain.Coordinates{Lat: c[0], Lon: c[1]}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("decode shape: %w: point %d: %v", domain.ErrMalformedShape, i, err)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode shape: %w: no points", domain.ErrMalformedShape)
	}

	return out, nil
}

// ManeuverSlice returns the inclusive coordinate range covered by m.
// The returned slice aliases shape and must not be modified.
func ManeuverSlice(shape []domain.Coordinates, m domain.Maneuver) ([]domain.Coordinates, error) {
	if err := m.Validate(len(shape)); err != nil {
		return nil, fmt.Errorf("maneuver slice: %w", err)
	}

	end := m.EndIndex
	if end == len(shape) {
		end = len(shape) - 1
	}

	return shape[m.BeginIndex : end+1], nil
}
