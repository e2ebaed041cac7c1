// Package gate combines confidence, bias/blindspot findings, and backtest
// outcome into a risk level and publication decision, and guards the
// human-in-the-loop state machine.
//
// States: SCORED → DOWNGRADED (terminal) | PENDING_REVIEW | PUBLISHED;
// PENDING_REVIEW → APPROVED → PUBLISHED, or PENDING_REVIEW → REJECTED
// (terminal). No other transitions are legal.
package gate

import (
	"context"
	"errors"

	"github.com/adjudex/adjudex/pkg/backtest"
	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/policy"
)

// ErrInvalidTransition rejects an illegal state-machine move, including any
// review decision against a report that has left PENDING_REVIEW.
var ErrInvalidTransition = errors.New("invalid publication state transition")

// Gate derives risk and publication decisions under one policy profile.
type Gate struct {
	policy *policy.Policy
	rules  *policy.RiskRuleEvaluator
}

// NewGate creates a gate. The CEL evaluator is built once even when no rules
// are configured, so profiles can be swapped without rebuilding the gate.
func NewGate(p *policy.Policy) (*Gate, error) {
	rules, err := policy.NewRiskRuleEvaluator()
	if err != nil {
		return nil, err
	}
	return &Gate{policy: p, rules: rules}, nil
}

// Input is everything the gate inspects for one scored artifact.
type Input struct {
	Kind       contracts.ArtifactKind
	Breakdown  contracts.ConfidenceBreakdown
	BiasFlags  []contracts.BiasFlag
	Blindspots []contracts.BlindspotItem
	Diversity  float64
	Backtest   backtest.Outcome
	// InsufficientEvidence is set when the artifact had zero normalized
	// evidence items; the gate caps confidence under the publish floor so
	// such reports can never publish on a vacuous score.
	InsufficientEvidence bool
}

// Decision is the gate's verdict: the effective kind, the (possibly capped)
// breakdown, the derived risk level, and the entry publication status.
type Decision struct {
	Kind        contracts.ArtifactKind
	Breakdown   contracts.ConfidenceBreakdown
	Risk        contracts.RiskLevel
	Status      contracts.PublicationStatus
	Annotations []string
}

// Decide runs the gate. The downgrade path (missing/malformed backtest on a
// Forecast, or confidence under the publish floor) is terminal for this
// version; high risk routes to PENDING_REVIEW; everything else publishes
// directly.
func (g *Gate) Decide(ctx context.Context, in Input) Decision {
	d := Decision{
		Kind:      in.Kind,
		Breakdown: in.Breakdown,
	}

	backtestFailed := in.Backtest.Applicable && !in.Backtest.Valid
	if backtestFailed {
		// Policy downgrade: the forecast is reported as a hypothesis and its
		// confidence is capped under the floor that permits high-confidence
		// probability claims.
		d.Kind = contracts.KindHypothesis
		d.Annotations = append(d.Annotations, contracts.AnnotationBacktestDowngrade)
		d.Breakdown, d.Annotations = g.capConfidence(d.Breakdown, d.Annotations)
	}
	if in.InsufficientEvidence {
		d.Breakdown, d.Annotations = g.capConfidence(d.Breakdown, d.Annotations)
	}

	risk, ruleAnnotations := g.deriveRisk(ctx, in, d)
	d.Risk = risk
	d.Annotations = append(d.Annotations, ruleAnnotations...)

	switch {
	case backtestFailed || d.Breakdown.ConfidenceScore < g.policy.PublishFloor:
		d.Status = contracts.StatusDowngraded
	case d.Risk == contracts.RiskHigh:
		d.Status = contracts.StatusPendingReview
	default:
		d.Status = contracts.StatusPublished
	}
	return d
}

// capConfidence pins the aggregate under the publish floor. The breakdown
// dimensions stay untouched so the capped score remains explainable.
func (g *Gate) capConfidence(b contracts.ConfidenceBreakdown, annotations []string) (contracts.ConfidenceBreakdown, []string) {
	cap := g.policy.PublishFloor * 0.99
	if b.ConfidenceScore > cap {
		b.ConfidenceScore = cap
		annotations = append(annotations, contracts.AnnotationConfidenceCapped)
	}
	return b, annotations
}

func (g *Gate) deriveRisk(ctx context.Context, in Input, d Decision) (contracts.RiskLevel, []string) {
	t := g.policy.Risk

	high := d.Breakdown.ConfidenceScore < t.ConfidenceFloor
	for _, f := range in.BiasFlags {
		if f.Severity.AtLeast(t.BiasSeverity) {
			high = true
		}
	}
	for _, b := range in.Blindspots {
		for _, dim := range t.MandatoryDimensions {
			if b.Dimension == dim {
				high = true
			}
		}
	}

	var annotations []string
	if !high && len(t.Rules) > 0 {
		facts := riskFacts(in, d)
		for _, rule := range t.Rules {
			fired, err := g.rules.Evaluate(ctx, rule, facts)
			if err != nil {
				// Fail closed: a broken rule escalates rather than silently
				// passing, and the report says why.
				annotations = append(annotations, contracts.AnnotationRiskRuleError)
				fired = true
			}
			if fired {
				high = true
				break
			}
		}
	}

	if high {
		return contracts.RiskHigh, annotations
	}
	if len(in.BiasFlags) > 0 || len(in.Blindspots) > 0 {
		return contracts.RiskMedium, annotations
	}
	return contracts.RiskLow, annotations
}

// riskFacts exposes the decision to CEL rules as a plain map.
func riskFacts(in Input, d Decision) map[string]any {
	biasKinds := make([]string, 0, len(in.BiasFlags))
	maxSeverity := ""
	for _, f := range in.BiasFlags {
		biasKinds = append(biasKinds, string(f.Kind))
		if f.Severity.AtLeast(contracts.Severity(maxSeverity)) {
			maxSeverity = string(f.Severity)
		}
	}
	blindspotDims := make([]string, 0, len(in.Blindspots))
	for _, b := range in.Blindspots {
		blindspotDims = append(blindspotDims, string(b.Dimension))
	}

	return map[string]any{
		"kind":               string(d.Kind),
		"confidence_score":   d.Breakdown.ConfidenceScore,
		"evidence_strength":  d.Breakdown.EvidenceStrength,
		"coverage":           d.Breakdown.Coverage,
		"consistency":        d.Breakdown.Consistency,
		"freshness":          d.Breakdown.Freshness,
		"evidence_diversity": in.Diversity,
		"bias_kinds":         biasKinds,
		"max_bias_severity":  maxSeverity,
		"blindspots":         blindspotDims,
		"annotations":        d.Annotations,
	}
}

// legalTransitions is the complete transition relation of the gate.
var legalTransitions = map[contracts.PublicationStatus][]contracts.PublicationStatus{
	contracts.StatusScored: {
		contracts.StatusDowngraded,
		contracts.StatusPendingReview,
		contracts.StatusPublished,
	},
	contracts.StatusPendingReview: {
		contracts.StatusApproved,
		contracts.StatusRejected,
	},
	contracts.StatusApproved: {
		contracts.StatusPublished,
	},
}

// ValidateTransition returns ErrInvalidTransition unless from → to is legal.
func ValidateTransition(from, to contracts.PublicationStatus) error {
	for _, next := range legalTransitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ApplyReview maps a review outcome onto the state chain it causes. Approval
// yields APPROVED followed by the automatic PUBLISHED step; rejection is
// terminal. Any current status other than PENDING_REVIEW is rejected, which
// is what serializes concurrent review submissions: the first decision to
// commit moves the report out of PENDING_REVIEW and later attempts fail here.
func ApplyReview(current contracts.PublicationStatus, outcome contracts.ReviewOutcome) ([]contracts.PublicationStatus, error) {
	if current != contracts.StatusPendingReview {
		return nil, ErrInvalidTransition
	}
	switch outcome {
	case contracts.OutcomeApprove:
		return []contracts.PublicationStatus{contracts.StatusApproved, contracts.StatusPublished}, nil
	case contracts.OutcomeReject:
		return []contracts.PublicationStatus{contracts.StatusRejected}, nil
	default:
		return nil, ErrInvalidTransition
	}
}
