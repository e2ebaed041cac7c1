// Package scoring computes the four-dimension confidence breakdown and its
// weighted aggregate. The breakdown is always returned alongside the
// aggregate; no caller ever sees a bare scalar.
package scoring

import (
	"math"
	"time"

	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/evidence"
	"github.com/adjudex/adjudex/pkg/policy"
)

// Scorer derives confidence breakdowns under one policy profile.
type Scorer struct {
	policy *policy.Policy
	clock  func() time.Time
}

// NewScorer creates a scorer bound to a policy profile.
func NewScorer(p *policy.Policy) *Scorer {
	return &Scorer{policy: p, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (s *Scorer) WithClock(clock func() time.Time) *Scorer {
	s.clock = clock
	return s
}

// Score computes the breakdown from normalized evidence, the consistency
// dimension from the checker, and the claim scope. Empty evidence yields
// zero strength and coverage; the caller records the insufficient_evidence
// blindspot.
func (s *Scorer) Score(items []contracts.EvidenceItem, consistencyScore float64, claim contracts.ClaimPayload) contracts.ConfidenceBreakdown {
	b := contracts.ConfidenceBreakdown{
		EvidenceStrength: s.evidenceStrength(items),
		Coverage:         s.coverage(items, claim),
		Consistency:      contracts.Clamp01(consistencyScore),
		Freshness:        s.freshness(items),
	}
	b.ConfidenceScore = b.Aggregate(s.policy.Weights)
	return b
}

// evidenceStrength rewards independent, reliable sourcing, with diminishing
// returns past the configured distinct-source saturation point.
func (s *Scorer) evidenceStrength(items []contracts.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}

	distinct := float64(evidence.DistinctSources(items))
	saturation := float64(s.policy.DistinctSourceSaturation)
	countFactor := 1.0
	if distinct < saturation {
		countFactor = distinct / saturation
	}

	var sum float64
	for _, it := range items {
		sum += it.Reliability
	}
	meanReliability := sum / float64(len(items))

	return contracts.Clamp01(countFactor * meanReliability)
}

// coverage is the fraction of the claim's expected dimensions (topic, time
// window, geography) with at least one supporting evidence item.
func (s *Scorer) coverage(items []contracts.EvidenceItem, claim contracts.ClaimPayload) float64 {
	if len(items) == 0 {
		return 0
	}

	expected := 0
	covered := 0

	if claim.Topic != "" {
		expected++
		if hasSupporting(items, func(it contracts.EvidenceItem) bool { return it.Topic == claim.Topic }) {
			covered++
		}
	}
	if !claim.Window.IsZero() {
		expected++
		if hasSupporting(items, func(it contracts.EvidenceItem) bool { return claim.Window.Contains(it.Timestamp) }) {
			covered++
		}
	}
	if claim.Geography != "" {
		expected++
		if hasSupporting(items, func(it contracts.EvidenceItem) bool { return it.Geography == claim.Geography }) {
			covered++
		}
	}

	if expected == 0 {
		return 1
	}
	return float64(covered) / float64(expected)
}

// freshness decays with the age of the most recent supporting item relative
// to the configured half-life.
func (s *Scorer) freshness(items []contracts.EvidenceItem) float64 {
	var newest time.Time
	for _, it := range items {
		if it.Stance != contracts.StanceSupporting {
			continue
		}
		if it.Timestamp.After(newest) {
			newest = it.Timestamp
		}
	}
	if newest.IsZero() {
		return 0
	}

	ageHours := s.clock().Sub(newest).Hours()
	if ageHours <= 0 {
		return 1
	}
	return contracts.Clamp01(math.Pow(0.5, ageHours/s.policy.FreshnessHalfLifeHours))
}

func hasSupporting(items []contracts.EvidenceItem, match func(contracts.EvidenceItem) bool) bool {
	for _, it := range items {
		if it.Stance == contracts.StanceSupporting && match(it) {
			return true
		}
	}
	return false
}
