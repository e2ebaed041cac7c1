// Package consistency compares a target artifact's claim against sibling
// artifacts in the same case and scores contradiction.
package consistency

import (
	"fmt"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// Contradiction records one sibling claim that opposes the target on the
// same topic within an overlapping time window.
type Contradiction struct {
	SiblingID      string           `json:"sibling_id"`
	SiblingVersion int              `json:"sibling_version"`
	Topic          string           `json:"topic"`
	SiblingStance  contracts.Stance `json:"sibling_stance"`
}

// Result is the consistency dimension outcome.
type Result struct {
	// Score is 1 minus the normalized contradiction count, clamped to [0,1].
	Score          float64         `json:"score"`
	Contradictions []Contradiction `json:"contradictions,omitempty"`
	// Compared counts siblings sharing the target's topic.
	Compared int `json:"compared"`
	// LowSample marks a vacuous 1.0 score: no comparable siblings existed.
	LowSample bool `json:"low_sample"`
}

// Checker scores claim consistency against case siblings.
type Checker struct{}

// NewChecker creates a consistency checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Score compares the target claim with its case siblings. Siblings whose
// stance opposes the target on the same topic count as contradictions only
// when their time windows overlap; disagreement across disjoint windows is
// freshness, not conflict.
func (c *Checker) Score(target contracts.ClaimPayload, targetID string, siblings []contracts.UpstreamArtifact) Result {
	var compared int
	var contradictions []Contradiction

	for _, sib := range siblings {
		if sib.ArtifactID == targetID {
			continue
		}
		if sib.Claim.Topic != target.Topic {
			continue
		}
		compared++

		if !sib.Claim.Stance.Opposes(target.Stance) {
			continue
		}
		if !sib.Claim.Window.Overlaps(target.Window) {
			continue
		}
		contradictions = append(contradictions, Contradiction{
			SiblingID:      sib.ArtifactID,
			SiblingVersion: sib.Version,
			Topic:          sib.Claim.Topic,
			SiblingStance:  sib.Claim.Stance,
		})
	}

	if compared == 0 {
		// Vacuously consistent, flagged for transparency.
		return Result{Score: 1.0, LowSample: true}
	}

	score := 1.0 - float64(len(contradictions))/float64(compared)
	return Result{
		Score:          contracts.Clamp01(score),
		Contradictions: contradictions,
		Compared:       compared,
	}
}

// Describe renders a short human-readable summary for audit metadata.
func (r Result) Describe() string {
	if r.LowSample {
		return "no comparable siblings (low_sample)"
	}
	return fmt.Sprintf("%d contradictions across %d comparable siblings", len(r.Contradictions), r.Compared)
}
