package domain

import "errors"

var (
	ErrMalformedShape  = errors.New("malformed route shape")
	ErrInvalidManeuver = errors.New("invalid maneuver")
	ErrEmptyRoute      = errors.New("route has no maneuvers")
	ErrConservation    = errors.New("conservation violated")
	ErrCacheLoad       = errors.New("cell cache load failed")
)
