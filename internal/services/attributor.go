package services

import (
	"fmt"
	"math"
	"state-time-service/internal/domain"
)

// Relative tolerance for the conservation check.
const ConservationTolerance = 1e-6

// How unresolved samples take part in attribution.
type UnresolvedPolicy string

const (
	// Drop unresolved samples from weighting unless every sample is
	// unresolved, in which case the whole maneuver goes to domain.Unknown.
	UnresolvedExclude UnresolvedPolicy = "exclude"
	// Treat unresolved samples as a domain.Unknown pseudo-state that
	// competes with resolved states.
	UnresolvedBucket UnresolvedPolicy = "bucket"
)

func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch UnresolvedPolicy(s) {
	case "", UnresolvedExclude:
		return UnresolvedExclude, nil
	case UnresolvedBucket:
		return UnresolvedBucket, nil
	default:
		return "", fmt.Errorf("unknown unresolved policy %q", s)
	}
}

// Attributor converts the ordered sample states of one maneuver into
// per-state seconds. Implementations must conserve seconds exactly
// (within floating point) and return shares ordered by first appearance.
type Attributor interface {
	Name() string
	Attribute(states []string, seconds float64) []domain.StateShare
}

// MajorityVote assigns the whole maneuver to its most sampled state.
// Ties go to the state that appears first in sample order.
type MajorityVote struct {
	Policy UnresolvedPolicy
}

func (MajorityVote) Name() string { return "majority_vote" }

func (a MajorityVote) Attribute(states []string, seconds float64) []domain.StateShare {
	resolved := effectiveStates(states, a.Policy)
	if len(resolved) == 0 {
		return []domain.StateShare{{State: domain.Unknown, Seconds: seconds}}
	}

	counts := make(map[string]int, 4)
	order := make([]string, 0, 4)
	for _, s := range resolved {
		if _, ok := counts[s]; !ok {
			order = append(order, s)
		}
		counts[s]++
	}

	// Strictly greater keeps the earliest state on ties.
	best := order[0]
	for _, s := range order[1:] {
		if counts[s] > counts[best] {
			best = s
		}
	}

	return []domain.StateShare{{State: best, Seconds: seconds}}
}

// ProportionalSplit divides the maneuver across maximal runs of identical
// consecutive states, weighting each run by its length.
type ProportionalSplit struct {
	Policy UnresolvedPolicy
}

func (ProportionalSplit) Name() string { return "proportional_split" }

func (a ProportionalSplit) Attribute(states []string, seconds float64) []domain.StateShare {
	resolved := effectiveStates(states, a.Policy)
	if len(resolved) == 0 {
		return []domain.StateShare{{State: domain.Unknown, Seconds: seconds}}
	}

	total := float64(len(resolved))
	index := make(map[string]int, 4)
	shares := make([]domain.StateShare, 0, 4)

	for i := 0; i < len(resolved); {
		j := i
		for j < len(resolved) && resolved[j] == resolved[i] {
			j++
		}

		w := float64(j-i) / total
		if k, ok := index[resolved[i]]; ok {
			shares[k].Seconds += seconds * w
		} else {
			index[resolved[i]] = len(shares)
			shares = append(shares, domain.StateShare{State: resolved[i], Seconds: seconds * w})
		}
		i = j
	}

	return shares
}

// effectiveStates applies the unresolved policy. An empty result means
// every sample was unresolved. Panics on an empty input: the samplers
// always produce at least one sample.
func effectiveStates(states []string, policy UnresolvedPolicy) []string {
	if len(states) == 0 {
		panic("attribute: empty sample sequence")
	}

	out := make([]string, 0, len(states))
	allUnresolved := true
	for _, s := range states {
		if s == domain.Unresolved {
			if policy == UnresolvedBucket {
				out = append(out, domain.Unknown)
			}
			continue
		}
		allUnresolved = false
		out = append(out, s)
	}

	if allUnresolved {
		return nil
	}
	return out
}

// CheckConservation verifies that shares add up to seconds.
func CheckConservation(shares []domain.StateShare, seconds float64) error {
	sum := 0.0
	for _, s := range shares {
		if s.Seconds < 0 || math.IsNaN(s.Seconds) {
			return fmt.Errorf("%w: share %q has %v seconds", domain.ErrConservation, s.State, s.Seconds)
		}
		sum += s.Seconds
	}

	diff := math.Abs(sum - seconds)
	if diff > ConservationTolerance*math.Max(1, math.Abs(seconds)) {
		return fmt.Errorf("%w: allocated %.9f of %.9f seconds", domain.ErrConservation, sum, seconds)
	}
	return nil
}
