package services

import (
	"fmt"
	"sort"
	"state-time-service/internal/domain"
	"state-time-service/internal/spatial"
)

const (
	DefaultSampleCount      = 5
	DefaultSampleStepMeters = 500.0
)

// Sampler places deterministic sample points along a maneuver's geometry.
// Every multi-point slice yields at least two samples (start and end);
// a one-point slice yields exactly one.
type Sampler interface {
	Sample(path []domain.Coordinates) []domain.Sample
}

// IndexSampler spaces a fixed number of samples evenly in index space.
type IndexSampler struct {
	Count  int
	Metric spatial.Metric
}

func NewIndexSampler(count int, metric spatial.Metric) (*IndexSampler, error) {
	if count < 2 {
		return nil, fmt.Errorf("index sampler: count must be >= 2, got %d", count)
	}
	if metric == nil {
		metric = spatial.Haversine
	}
	return &IndexSampler{Count: count, Metric: metric}, nil
}

func (s *IndexSampler) Sample(path []domain.Coordinates) []domain.Sample {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 {
		return []domain.Sample{{Coordinates: path[0]}}
	}

	cum := spatial.CumulativeDistances(path, s.Metric)
	last := float64(len(path) - 1)

	out := make([]domain.Sample, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		pos := float64(i) * last / float64(s.Count-1)
		j := int(pos)
		if j >= len(path)-1 {
			j = len(path) - 2
		}
		frac := pos - float64(j)

		out = append(out, domain.Sample{
			Coordinates:      spatial.Lerp(path[j], path[j+1], frac),
			CumulativeMeters: cum[j] + frac*(cum[j+1]-cum[j]),
		})
	}

	return out
}

// DistanceSampler spaces samples evenly in along-path distance at roughly
// StepMeters apart.
type DistanceSampler struct {
	StepMeters float64
	Metric     spatial.Metric
}

func NewDistanceSampler(stepMeters float64, metric spatial.Metric) (*DistanceSampler, error) {
	if stepMeters <= 0 {
		return nil, fmt.Errorf("distance sampler: step must be positive, got %v", stepMeters)
	}
	if metric == nil {
		metric = spatial.Haversine
	}
	return &DistanceSampler{StepMeters: stepMeters, Metric: metric}, nil
}

func (s *DistanceSampler) Sample(path []domain.Coordinates) []domain.Sample {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 {
		return []domain.Sample{{Coordinates: path[0]}}
	}

	cum := spatial.CumulativeDistances(path, s.Metric)
	total := cum[len(cum)-1]
	if total <= 0 {
		// All points coincide.
		return []domain.Sample{
			{Coordinates: path[0]},
			{Coordinates: path[len(path)-1]},
		}
	}

	steps := int(total / s.StepMeters)
	if steps < 1 {
		steps = 1
	}

	out := make([]domain.Sample, 0, steps+1)
	for k := 0; k <= steps; k++ {
		target := float64(k) * total / float64(steps)
		if k == steps {
			target = total
		}
		out = append(out, interpolateAt(path, cum, target))
	}

	return out
}

// interpolateAt returns the point at along-path distance target.
func interpolateAt(path []domain.Coordinates, cum []float64, target float64) domain.Sample {
	// First index whose cumulative distance reaches target.
	j := sort.SearchFloat64s(cum, target)
	if j == 0 {
		return domain.Sample{Coordinates: path[0]}
	}
	if j >= len(path) {
		return domain.Sample{Coordinates: path[len(path)-1], CumulativeMeters: cum[len(cum)-1]}
	}

	seg := cum[j] - cum[j-1]
	if seg <= 0 {
		return domain.Sample{Coordinates: path[j-1], CumulativeMeters: cum[j-1]}
	}

	t := (target - cum[j-1]) / seg
	return domain.Sample{
		Coordinates:      spatial.Lerp(path[j-1], path[j], t),
		CumulativeMeters: target,
	}
}
