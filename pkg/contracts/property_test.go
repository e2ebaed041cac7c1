//go:build property
// +build property

// Property-based tests for aggregate clamping and hash determinism.
package contracts_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// TestAggregateAlwaysClamped verifies the aggregate never escapes [0,1] for
// any dimension values and non-negative weights.
func TestAggregateAlwaysClamped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	unit := gen.Float64Range(-2, 2)
	weight := gen.Float64Range(0, 10)

	properties.Property("aggregate stays in [0,1]", prop.ForAll(
		func(es, cov, cons, fresh, w1, w2, w3, w4 float64) bool {
			b := contracts.ConfidenceBreakdown{
				EvidenceStrength: es,
				Coverage:         cov,
				Consistency:      cons,
				Freshness:        fresh,
			}
			w := contracts.ConfidenceWeights{
				EvidenceStrength: w1, Coverage: w2, Consistency: w3, Freshness: w4,
			}
			score := b.Aggregate(w)
			return score >= 0 && score <= 1
		},
		unit, unit, unit, unit, weight, weight, weight, weight,
	))

	properties.Property("aggregate is deterministic", prop.ForAll(
		func(es, cov, cons, fresh float64) bool {
			b := contracts.ConfidenceBreakdown{
				EvidenceStrength: es, Coverage: cov, Consistency: cons, Freshness: fresh,
			}
			w := contracts.ConfidenceWeights{
				EvidenceStrength: 0.35, Coverage: 0.25, Consistency: 0.25, Freshness: 0.15,
			}
			return b.Aggregate(w) == b.Aggregate(w)
		},
		unit, unit, unit, unit,
	))

	properties.TestingRun(t)
}

// TestContentHashDeterminism verifies canonical hashing is stable for
// arbitrary report identities.
func TestContentHashDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("hash(report) == hash(report)", prop.ForAll(
		func(caseID, artifactID string, version int, score float64) bool {
			r := &contracts.QualityReport{
				ReportID:   "r",
				CaseID:     caseID,
				ArtifactID: artifactID,
				Version:    version,
				Breakdown:  contracts.ConfidenceBreakdown{ConfidenceScore: score},
			}
			h1, err1 := r.ComputeContentHash()
			h2, err2 := r.ComputeContentHash()
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return h1 == h2
		},
		gen.AlphaString(), gen.AlphaString(), gen.Int(), gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
