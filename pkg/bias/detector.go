// Package bias flags bias patterns and evidence blindspots in a normalized
// evidence set. Findings are data on the report, never errors; the detector
// returns empty slices when nothing fires.
package bias

import (
	"fmt"
	"sort"

	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/evidence"
	"github.com/adjudex/adjudex/pkg/policy"
)

// Detector evaluates bias and blindspot rules under one policy profile.
type Detector struct {
	policy *policy.Policy
}

// NewDetector creates a detector bound to a policy profile.
func NewDetector(p *policy.Policy) *Detector {
	return &Detector{policy: p}
}

// DetectBias runs all bias rules independently; multiple may fire.
func (d *Detector) DetectBias(items []contracts.EvidenceItem, claim contracts.ClaimPayload) []contracts.BiasFlag {
	flags := []contracts.BiasFlag{}
	if len(items) == 0 {
		return flags
	}

	if f, fired := d.singleSourceDependence(items); fired {
		flags = append(flags, f)
	}
	if f, fired := d.stanceBias(items); fired {
		flags = append(flags, f)
	}
	if f, fired := d.confirmationBias(items, claim); fired {
		flags = append(flags, f)
	}
	return flags
}

func (d *Detector) singleSourceDependence(items []contracts.EvidenceItem) (contracts.BiasFlag, bool) {
	distinct := evidence.DistinctSources(items)
	if distinct >= d.policy.DistinctSourceMin {
		return contracts.BiasFlag{}, false
	}

	severity := contracts.SeverityMedium
	if distinct <= 1 {
		severity = contracts.SeverityHigh
	}
	return contracts.BiasFlag{
		Kind:        contracts.BiasSingleSourceDependence,
		Severity:    severity,
		EvidenceIDs: sourceIDs(items),
		Detail:      fmt.Sprintf("%d distinct sources, minimum is %d", distinct, d.policy.DistinctSourceMin),
	}, true
}

func (d *Detector) stanceBias(items []contracts.EvidenceItem) (contracts.BiasFlag, bool) {
	counts := map[contracts.Stance]int{}
	for _, it := range items {
		counts[it.Stance]++
	}

	for _, dominant := range []contracts.Stance{contracts.StanceSupporting, contracts.StanceOpposing} {
		n := counts[dominant]
		if n == 0 {
			continue
		}
		fraction := float64(n) / float64(len(items))
		if fraction <= d.policy.StanceBiasFraction {
			continue
		}
		opposing := 0
		for stance, c := range counts {
			if stance.Opposes(dominant) {
				opposing += c
			}
		}
		if opposing > 0 {
			continue
		}

		severity := contracts.SeverityMedium
		if fraction == 1 {
			severity = contracts.SeverityHigh
		}
		var ids []string
		for _, it := range items {
			if it.Stance == dominant {
				ids = append(ids, it.SourceID)
			}
		}
		return contracts.BiasFlag{
			Kind:        contracts.BiasStance,
			Severity:    severity,
			EvidenceIDs: dedupe(ids),
			Detail:      fmt.Sprintf("%.0f%% of evidence shares stance %s with no opposing items", fraction*100, dominant),
		}, true
	}
	return contracts.BiasFlag{}, false
}

// confirmationBias fires when every supporting item post-dates the claim's
// stated hypothesis timestamp. A heuristic signal, surfaced as a flag only.
func (d *Detector) confirmationBias(items []contracts.EvidenceItem, claim contracts.ClaimPayload) (contracts.BiasFlag, bool) {
	if claim.HypothesisAt.IsZero() {
		return contracts.BiasFlag{}, false
	}

	supporting := 0
	var ids []string
	for _, it := range items {
		if it.Stance != contracts.StanceSupporting {
			continue
		}
		supporting++
		if !it.Timestamp.After(claim.HypothesisAt) {
			return contracts.BiasFlag{}, false
		}
		ids = append(ids, it.SourceID)
	}
	if supporting == 0 {
		return contracts.BiasFlag{}, false
	}

	return contracts.BiasFlag{
		Kind:        contracts.BiasConfirmation,
		Severity:    contracts.SeverityMedium,
		EvidenceIDs: dedupe(ids),
		Detail:      "all supporting evidence was gathered after the hypothesis was stated",
	}, true
}

// DetectBlindspots records a gap for each claim-scope dimension with no
// covering evidence item.
func (d *Detector) DetectBlindspots(items []contracts.EvidenceItem, claim contracts.ClaimPayload) []contracts.BlindspotItem {
	spots := []contracts.BlindspotItem{}

	if claim.Topic != "" && !anyItem(items, func(it contracts.EvidenceItem) bool { return it.Topic == claim.Topic }) {
		spots = append(spots, contracts.BlindspotItem{
			Dimension:   contracts.BlindspotTopic,
			Description: fmt.Sprintf("no evidence covers topic %q", claim.Topic),
		})
	}
	if !claim.Window.IsZero() && !anyItem(items, func(it contracts.EvidenceItem) bool { return claim.Window.Contains(it.Timestamp) }) {
		spots = append(spots, contracts.BlindspotItem{
			Dimension:   contracts.BlindspotTimeWindow,
			Description: "no evidence falls inside the claim time window",
		})
	}
	if claim.Geography != "" && !anyItem(items, func(it contracts.EvidenceItem) bool { return it.Geography == claim.Geography }) {
		spots = append(spots, contracts.BlindspotItem{
			Dimension:   contracts.BlindspotGeography,
			Description: fmt.Sprintf("no evidence covers geography %q", claim.Geography),
		})
	}
	return spots
}

// Diversity is the report's evidence_diversity metric: an even blend of
// source-identity spread and stance spread, in [0,1].
func (d *Detector) Diversity(items []contracts.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sourceSpread := float64(evidence.DistinctSources(items)) / float64(len(items))

	stances := map[contracts.Stance]struct{}{}
	for _, it := range items {
		stances[it.Stance] = struct{}{}
	}
	stanceSpread := float64(len(stances)) / 3.0

	return contracts.Clamp01(0.5*sourceSpread + 0.5*stanceSpread)
}

func anyItem(items []contracts.EvidenceItem, match func(contracts.EvidenceItem) bool) bool {
	for _, it := range items {
		if match(it) {
			return true
		}
	}
	return false
}

func sourceIDs(items []contracts.EvidenceItem) []string {
	return dedupe(func() []string {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.SourceID)
		}
		return ids
	}())
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
