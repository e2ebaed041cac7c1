package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/policy"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestScorer(p *policy.Policy) *Scorer {
	return NewScorer(p).WithClock(func() time.Time { return now })
}

func item(src string, reliability float64, stance contracts.Stance, age time.Duration) contracts.EvidenceItem {
	return contracts.EvidenceItem{
		SourceID:    src,
		Reliability: reliability,
		Stance:      stance,
		Timestamp:   now.Add(-age),
		Topic:       "supply",
		Geography:   "eu",
	}
}

func claim() contracts.ClaimPayload {
	return contracts.ClaimPayload{
		Topic:     "supply",
		Stance:    contracts.StanceSupporting,
		Window:    contracts.TimeWindow{Start: now.Add(-30 * 24 * time.Hour), End: now},
		Geography: "eu",
	}
}

func TestEmptyEvidenceZeroesStrengthAndCoverage(t *testing.T) {
	s := newTestScorer(policy.Default())

	b := s.Score(nil, 1.0, claim())
	assert.Equal(t, 0.0, b.EvidenceStrength)
	assert.Equal(t, 0.0, b.Coverage)
	assert.Equal(t, 0.0, b.Freshness)
	assert.Equal(t, 1.0, b.Consistency)
}

func TestBreakdownAlwaysAccompaniesAggregate(t *testing.T) {
	p := policy.Default()
	s := newTestScorer(p)

	items := []contracts.EvidenceItem{
		item("a", 0.9, contracts.StanceSupporting, time.Hour),
		item("b", 0.9, contracts.StanceSupporting, time.Hour),
	}
	b := s.Score(items, 1.0, claim())

	assert.Equal(t, b.ConfidenceScore, b.Aggregate(p.Weights),
		"aggregate must be reproducible from the breakdown and weights")
}

func TestEvidenceStrengthDiminishingReturns(t *testing.T) {
	p := policy.Default()
	p.DistinctSourceSaturation = 3
	s := newTestScorer(p)

	one := s.Score([]contracts.EvidenceItem{
		item("a", 1.0, contracts.StanceSupporting, time.Hour),
	}, 1, claim())
	three := s.Score([]contracts.EvidenceItem{
		item("a", 1.0, contracts.StanceSupporting, time.Hour),
		item("b", 1.0, contracts.StanceSupporting, time.Hour),
		item("c", 1.0, contracts.StanceSupporting, time.Hour),
	}, 1, claim())
	five := s.Score([]contracts.EvidenceItem{
		item("a", 1.0, contracts.StanceSupporting, time.Hour),
		item("b", 1.0, contracts.StanceSupporting, time.Hour),
		item("c", 1.0, contracts.StanceSupporting, time.Hour),
		item("d", 1.0, contracts.StanceSupporting, time.Hour),
		item("e", 1.0, contracts.StanceSupporting, time.Hour),
	}, 1, claim())

	assert.Less(t, one.EvidenceStrength, three.EvidenceStrength)
	assert.Equal(t, three.EvidenceStrength, five.EvidenceStrength,
		"strength saturates past the configured distinct-source threshold")
	assert.Equal(t, 1.0, three.EvidenceStrength)
}

func TestEvidenceStrengthScalesWithReliability(t *testing.T) {
	p := policy.Default()
	p.DistinctSourceSaturation = 1
	s := newTestScorer(p)

	weak := s.Score([]contracts.EvidenceItem{item("a", 0.2, contracts.StanceSupporting, time.Hour)}, 1, claim())
	strong := s.Score([]contracts.EvidenceItem{item("a", 0.9, contracts.StanceSupporting, time.Hour)}, 1, claim())

	assert.Less(t, weak.EvidenceStrength, strong.EvidenceStrength)
}

func TestCoverageFractions(t *testing.T) {
	s := newTestScorer(policy.Default())
	c := claim()

	// Supporting item matching topic and window but not geography.
	partial := contracts.EvidenceItem{
		SourceID:    "a",
		Reliability: 1,
		Stance:      contracts.StanceSupporting,
		Timestamp:   now.Add(-time.Hour),
		Topic:       "supply",
		Geography:   "apac",
	}
	b := s.Score([]contracts.EvidenceItem{partial}, 1, c)
	assert.InDelta(t, 2.0/3.0, b.Coverage, 1e-9)

	// Opposing items do not cover.
	opposing := partial
	opposing.Stance = contracts.StanceOpposing
	b = s.Score([]contracts.EvidenceItem{opposing}, 1, c)
	assert.Equal(t, 0.0, b.Coverage)
}

func TestFreshnessHalfLife(t *testing.T) {
	p := policy.Default()
	p.FreshnessHalfLifeHours = 24
	s := newTestScorer(p)

	halfLifeOld := s.Score([]contracts.EvidenceItem{
		item("a", 1, contracts.StanceSupporting, 24*time.Hour),
	}, 1, claim())
	assert.InDelta(t, 0.5, halfLifeOld.Freshness, 1e-9)

	fresh := s.Score([]contracts.EvidenceItem{
		item("a", 1, contracts.StanceSupporting, 0),
	}, 1, claim())
	assert.Equal(t, 1.0, fresh.Freshness)

	// Freshness tracks the newest supporting item.
	mixed := s.Score([]contracts.EvidenceItem{
		item("a", 1, contracts.StanceSupporting, 240*time.Hour),
		item("b", 1, contracts.StanceSupporting, 24*time.Hour),
	}, 1, claim())
	assert.InDelta(t, 0.5, mixed.Freshness, 1e-9)
}

func TestConsistencyPassesThroughClamped(t *testing.T) {
	s := newTestScorer(policy.Default())

	b := s.Score(nil, 1.7, claim())
	assert.Equal(t, 1.0, b.Consistency)
	b = s.Score(nil, -0.3, claim())
	assert.Equal(t, 0.0, b.Consistency)
}
