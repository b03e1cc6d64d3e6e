package services

import (
	"fmt"
	"state-time-service/internal/spatial"
)

// Attribution pipeline variant.
type Mode string

const (
	// Fixed sample count per maneuver, majority vote.
	ModeFast Mode = "fast"
	// Fixed distance step, proportional split.
	ModePrecise Mode = "precise"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFast, ModePrecise:
		return Mode(s), nil
	case "lazy":
		return ModeFast, nil
	case "hybrid":
		return ModePrecise, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want fast or precise)", s)
	}
}

// Options configures a Pipeline. Zero values fall back to defaults.
// CellResolution is a pointer because resolution 0 is valid; nil selects
// spatial.DefaultResolution.
type Options struct {
	Mode                 Mode
	SampleCount          int
	SampleStepMeters     float64
	DistanceMetric       string
	CellResolution       *int
	UnresolvedPolicy     UnresolvedPolicy
	TimeThresholdSeconds float64
	ShapePrecision       int
	Workers              int
}

// CellRes returns r as an Options.CellResolution value.
func CellRes(r int) *int { return &r }

// Resolution returns the configured cell resolution, or the default.
func (o Options) Resolution() int {
	if o.CellResolution == nil {
		return spatial.DefaultResolution
	}
	return *o.CellResolution
}

func DefaultOptions(mode Mode) Options {
	return Options{
		Mode:                 mode,
		SampleCount:          DefaultSampleCount,
		SampleStepMeters:     DefaultSampleStepMeters,
		DistanceMetric:       spatial.MetricHaversine,
		CellResolution:       CellRes(spatial.DefaultResolution),
		UnresolvedPolicy:     UnresolvedExclude,
		TimeThresholdSeconds: DefaultTimeThresholdSeconds,
		ShapePrecision:       DefaultShapePrecision,
		Workers:              8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions(o.Mode)
	if o.Mode == "" {
		o.Mode = ModeFast
	}
	if o.SampleCount == 0 {
		o.SampleCount = d.SampleCount
	}
	if o.SampleStepMeters == 0 {
		o.SampleStepMeters = d.SampleStepMeters
	}
	if o.DistanceMetric == "" {
		o.DistanceMetric = d.DistanceMetric
	}
	if o.CellResolution == nil {
		o.CellResolution = d.CellResolution
	}
	if o.UnresolvedPolicy == "" {
		o.UnresolvedPolicy = d.UnresolvedPolicy
	}
	if o.TimeThresholdSeconds == 0 {
		o.TimeThresholdSeconds = d.TimeThresholdSeconds
	}
	if o.ShapePrecision == 0 {
		o.ShapePrecision = d.ShapePrecision
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

// NewSampler builds the sampler for the configured mode.
func (o Options) NewSampler() (Sampler, error) {
	o = o.withDefaults()

	metric, err := spatial.MetricByName(o.DistanceMetric)
	if err != nil {
		return nil, err
	}

	switch o.Mode {
	case ModeFast:
		return NewIndexSampler(o.SampleCount, metric)
	case ModePrecise:
		return NewDistanceSampler(o.SampleStepMeters, metric)
	default:
		return nil, fmt.Errorf("new sampler: unknown mode %q", o.Mode)
	}
}

// NewAttributor builds the attribution strategy for the configured mode.
func (o Options) NewAttributor() (Attributor, error) {
	o = o.withDefaults()

	switch o.Mode {
	case ModeFast:
		return MajorityVote{Policy: o.UnresolvedPolicy}, nil
	case ModePrecise:
		return ProportionalSplit{Policy: o.UnresolvedPolicy}, nil
	default:
		return nil, fmt.Errorf("new attributor: unknown mode %q", o.Mode)
	}
}
