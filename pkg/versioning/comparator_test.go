package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjudex/adjudex/pkg/contracts"
)

func report(version int, score float64) *contracts.QualityReport {
	return &contracts.QualityReport{
		ReportID:   "rep-" + string(rune('0'+version)),
		CaseID:     "case-1",
		ArtifactID: "art-1",
		Version:    version,
		Breakdown: contracts.ConfidenceBreakdown{
			EvidenceStrength: score,
			Coverage:         score,
			Consistency:      score,
			Freshness:        score,
			ConfidenceScore:  score,
		},
		BiasFlags:         []contracts.BiasFlag{},
		Blindspots:        []contracts.BlindspotItem{},
		EvidenceDiversity: score,
		RiskLevel:         contracts.RiskLow,
		PublicationStatus: contracts.StatusPublished,
	}
}

func TestCompareComputesDeltas(t *testing.T) {
	from := report(1, 0.6)
	to := report(2, 0.8)
	to.Breakdown.Freshness = 0.5

	delta, err := Compare(from, to)
	require.NoError(t, err)

	assert.Equal(t, "case-1", delta.CaseID)
	assert.Equal(t, 1, delta.FromVersion)
	assert.Equal(t, 2, delta.ToVersion)
	assert.InDelta(t, 0.2, delta.ConfidenceDelta, 1e-9)
	assert.InDelta(t, 0.2, delta.DiversityDelta, 1e-9)

	require.Len(t, delta.Dimensions, 4)
	byName := map[string]contracts.DimensionDelta{}
	for _, d := range delta.Dimensions {
		byName[d.Dimension] = d
	}
	assert.InDelta(t, 0.2, byName["evidence_strength"].Delta, 1e-9)
	assert.InDelta(t, -0.1, byName["freshness"].Delta, 1e-9)

	assert.False(t, delta.Regressed())
}

func TestCompareFlagAndBlindspotDiffs(t *testing.T) {
	from := report(1, 0.7)
	from.BiasFlags = []contracts.BiasFlag{
		{Kind: contracts.BiasSingleSourceDependence, Severity: contracts.SeverityHigh},
	}
	from.Blindspots = []contracts.BlindspotItem{
		{Dimension: contracts.BlindspotGeography},
	}

	to := report(2, 0.7)
	to.BiasFlags = []contracts.BiasFlag{
		{Kind: contracts.BiasStance, Severity: contracts.SeverityMedium},
	}
	to.Blindspots = []contracts.BlindspotItem{
		{Dimension: contracts.BlindspotGeography},
		{Dimension: contracts.BlindspotTimeWindow},
	}

	delta, err := Compare(from, to)
	require.NoError(t, err)

	require.Len(t, delta.AddedBiasFlags, 1)
	assert.Equal(t, contracts.BiasStance, delta.AddedBiasFlags[0].Kind)
	require.Len(t, delta.RemovedBiasFlags, 1)
	assert.Equal(t, contracts.BiasSingleSourceDependence, delta.RemovedBiasFlags[0].Kind)

	require.Len(t, delta.AddedBlindspots, 1)
	assert.Equal(t, contracts.BlindspotTimeWindow, delta.AddedBlindspots[0].Dimension)
	assert.Empty(t, delta.RemovedBlindspots)

	assert.True(t, delta.Regressed(), "a new bias flag is a regression even at equal confidence")
}

func TestCompareStatusAndRiskCarryThrough(t *testing.T) {
	from := report(1, 0.9)
	to := report(2, 0.4)
	to.RiskLevel = contracts.RiskHigh
	to.PublicationStatus = contracts.StatusDowngraded

	delta, err := Compare(from, to)
	require.NoError(t, err)

	assert.Equal(t, contracts.RiskLow, delta.FromRisk)
	assert.Equal(t, contracts.RiskHigh, delta.ToRisk)
	assert.Equal(t, contracts.StatusPublished, delta.FromStatus)
	assert.Equal(t, contracts.StatusDowngraded, delta.ToStatus)
	assert.True(t, delta.Regressed())
}

func TestCompareRejectsMismatchedArtifacts(t *testing.T) {
	from := report(1, 0.7)
	other := report(2, 0.7)
	other.ArtifactID = "art-2"

	_, err := Compare(from, other)
	assert.Error(t, err)

	_, err = Compare(nil, from)
	assert.Error(t, err)
	_, err = Compare(from, nil)
	assert.Error(t, err)
}
