// Package versioning computes version-over-version deltas between
// QualityReports of the same artifact for regression review. The append-only
// report history makes this comparison trivially correct: neither side can
// have mutated since it was written.
package versioning

import (
	"fmt"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// Compare emits the regression delta from one report version to another.
// Both reports must belong to the same (case, artifact).
func Compare(from, to *contracts.QualityReport) (*contracts.ReportDelta, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("compare requires two reports")
	}
	if from.CaseID != to.CaseID || from.ArtifactID != to.ArtifactID {
		return nil, fmt.Errorf("compare across artifacts: %s/%s vs %s/%s",
			from.CaseID, from.ArtifactID, to.CaseID, to.ArtifactID)
	}

	delta := &contracts.ReportDelta{
		CaseID:      from.CaseID,
		ArtifactID:  from.ArtifactID,
		FromVersion: from.Version,
		ToVersion:   to.Version,

		ConfidenceDelta: to.Breakdown.ConfidenceScore - from.Breakdown.ConfidenceScore,
		Dimensions:      dimensionDeltas(from.Breakdown, to.Breakdown),

		AddedBiasFlags:    diffFlags(to.BiasFlags, from.BiasFlags),
		RemovedBiasFlags:  diffFlags(from.BiasFlags, to.BiasFlags),
		AddedBlindspots:   diffBlindspots(to.Blindspots, from.Blindspots),
		RemovedBlindspots: diffBlindspots(from.Blindspots, to.Blindspots),

		DiversityDelta: to.EvidenceDiversity - from.EvidenceDiversity,

		FromRisk:   from.RiskLevel,
		ToRisk:     to.RiskLevel,
		FromStatus: from.PublicationStatus,
		ToStatus:   to.PublicationStatus,
	}
	return delta, nil
}

func dimensionDeltas(from, to contracts.ConfidenceBreakdown) []contracts.DimensionDelta {
	pairs := []struct {
		name     string
		from, to float64
	}{
		{"evidence_strength", from.EvidenceStrength, to.EvidenceStrength},
		{"coverage", from.Coverage, to.Coverage},
		{"consistency", from.Consistency, to.Consistency},
		{"freshness", from.Freshness, to.Freshness},
	}

	deltas := make([]contracts.DimensionDelta, 0, len(pairs))
	for _, p := range pairs {
		deltas = append(deltas, contracts.DimensionDelta{
			Dimension: p.name,
			From:      p.from,
			To:        p.to,
			Delta:     p.to - p.from,
		})
	}
	return deltas
}

// diffFlags returns flags present in a but not in b, matched by kind.
func diffFlags(a, b []contracts.BiasFlag) []contracts.BiasFlag {
	present := make(map[contracts.BiasKind]struct{}, len(b))
	for _, f := range b {
		present[f.Kind] = struct{}{}
	}
	out := []contracts.BiasFlag{}
	for _, f := range a {
		if _, ok := present[f.Kind]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// diffBlindspots returns blindspots present in a but not in b, matched by
// dimension.
func diffBlindspots(a, b []contracts.BlindspotItem) []contracts.BlindspotItem {
	present := make(map[contracts.BlindspotDimension]struct{}, len(b))
	for _, s := range b {
		present[s.Dimension] = struct{}{}
	}
	out := []contracts.BlindspotItem{}
	for _, s := range a {
		if _, ok := present[s.Dimension]; !ok {
			out = append(out, s)
		}
	}
	return out
}
