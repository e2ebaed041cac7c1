package bias

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/policy"
)

var t0 = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func ev(src string, stance contracts.Stance) contracts.EvidenceItem {
	return contracts.EvidenceItem{
		SourceID:    src,
		Reliability: 0.8,
		Stance:      stance,
		Timestamp:   t0,
		Topic:       "outage",
		Geography:   "us",
	}
}

func findFlag(flags []contracts.BiasFlag, kind contracts.BiasKind) (contracts.BiasFlag, bool) {
	for _, f := range flags {
		if f.Kind == kind {
			return f, true
		}
	}
	return contracts.BiasFlag{}, false
}

func TestNoEvidenceNoFlags(t *testing.T) {
	d := NewDetector(policy.Default())

	flags := d.DetectBias(nil, contracts.ClaimPayload{})
	assert.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestSingleSourceDependence(t *testing.T) {
	d := NewDetector(policy.Default())

	// Three items, one source.
	flags := d.DetectBias([]contracts.EvidenceItem{
		ev("only", contracts.StanceSupporting),
		ev("only", contracts.StanceOpposing),
		ev("only", contracts.StanceNeutral),
	}, contracts.ClaimPayload{})

	f, ok := findFlag(flags, contracts.BiasSingleSourceDependence)
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityHigh, f.Severity)
	assert.Equal(t, []string{"only"}, f.EvidenceIDs)
}

func TestSingleSourceDependenceNotFiredAtMinimum(t *testing.T) {
	p := policy.Default()
	require.Equal(t, 2, p.DistinctSourceMin)
	d := NewDetector(p)

	flags := d.DetectBias([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
		ev("b", contracts.StanceOpposing),
	}, contracts.ClaimPayload{})

	_, ok := findFlag(flags, contracts.BiasSingleSourceDependence)
	assert.False(t, ok)
}

func TestStanceBiasAllSupporting(t *testing.T) {
	d := NewDetector(policy.Default())

	flags := d.DetectBias([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
		ev("b", contracts.StanceSupporting),
		ev("c", contracts.StanceSupporting),
		ev("d", contracts.StanceSupporting),
		ev("e", contracts.StanceSupporting),
	}, contracts.ClaimPayload{})

	f, ok := findFlag(flags, contracts.BiasStance)
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityHigh, f.Severity)
}

func TestStanceBiasSuppressedByOpposingItem(t *testing.T) {
	d := NewDetector(policy.Default())

	// Five of six supporting exceeds the default fraction, but the single
	// opposing item defeats the rule.
	flags := d.DetectBias([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
		ev("b", contracts.StanceSupporting),
		ev("c", contracts.StanceSupporting),
		ev("d", contracts.StanceSupporting),
		ev("e", contracts.StanceSupporting),
		ev("f", contracts.StanceOpposing),
	}, contracts.ClaimPayload{})

	_, ok := findFlag(flags, contracts.BiasStance)
	assert.False(t, ok)
}

func TestStanceBiasFractionConfigurable(t *testing.T) {
	p := policy.Default()
	p.StanceBiasFraction = 1.0
	d := NewDetector(p)

	// 100% supporting never exceeds a fraction of 1.0.
	flags := d.DetectBias([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
		ev("b", contracts.StanceSupporting),
		ev("c", contracts.StanceSupporting),
	}, contracts.ClaimPayload{})

	_, ok := findFlag(flags, contracts.BiasStance)
	assert.False(t, ok)
}

func TestConfirmationBias(t *testing.T) {
	d := NewDetector(policy.Default())
	claim := contracts.ClaimPayload{HypothesisAt: t0.Add(-time.Hour)}

	after := ev("a", contracts.StanceSupporting)
	after2 := ev("b", contracts.StanceSupporting)
	neutral := ev("c", contracts.StanceNeutral)

	flags := d.DetectBias([]contracts.EvidenceItem{after, after2, neutral}, claim)
	f, ok := findFlag(flags, contracts.BiasConfirmation)
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, f.Severity)
	assert.Equal(t, []string{"a", "b"}, f.EvidenceIDs)

	// One supporting item pre-dating the hypothesis defeats the rule.
	before := ev("d", contracts.StanceSupporting)
	before.Timestamp = t0.Add(-2 * time.Hour)
	flags = d.DetectBias([]contracts.EvidenceItem{after, before}, claim)
	_, ok = findFlag(flags, contracts.BiasConfirmation)
	assert.False(t, ok)
}

func TestConfirmationBiasRequiresHypothesisTimestamp(t *testing.T) {
	d := NewDetector(policy.Default())

	flags := d.DetectBias([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
	}, contracts.ClaimPayload{})

	_, ok := findFlag(flags, contracts.BiasConfirmation)
	assert.False(t, ok)
}

func TestDetectBlindspots(t *testing.T) {
	d := NewDetector(policy.Default())
	claim := contracts.ClaimPayload{
		Topic:     "outage",
		Window:    contracts.TimeWindow{Start: t0.Add(-time.Hour), End: t0.Add(time.Hour)},
		Geography: "eu",
	}

	// Item matches topic and window but not geography.
	spots := d.DetectBlindspots([]contracts.EvidenceItem{ev("a", contracts.StanceNeutral)}, claim)
	require.Len(t, spots, 1)
	assert.Equal(t, contracts.BlindspotGeography, spots[0].Dimension)

	// No evidence at all on a fully scoped claim: every dimension is a gap.
	spots = d.DetectBlindspots(nil, claim)
	assert.Len(t, spots, 3)

	// Unscoped claim has no expected dimensions.
	spots = d.DetectBlindspots(nil, contracts.ClaimPayload{})
	assert.NotNil(t, spots)
	assert.Empty(t, spots)
}

func TestDiversity(t *testing.T) {
	d := NewDetector(policy.Default())

	assert.Equal(t, 0.0, d.Diversity(nil))

	// One source, one stance.
	low := d.Diversity([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
		ev("a", contracts.StanceSupporting),
	})

	// Distinct sources across all three stances.
	high := d.Diversity([]contracts.EvidenceItem{
		ev("a", contracts.StanceSupporting),
		ev("b", contracts.StanceOpposing),
		ev("c", contracts.StanceNeutral),
	})

	assert.Less(t, low, high)
	assert.Equal(t, 1.0, high)
}
