// Package policy holds the externally supplied scoring and gating
// configuration: dimension weights, bias thresholds, publish floors, and
// risk rules. Nothing in the scoring packages hardcodes these numbers;
// policy can evolve without touching scoring logic.
package policy

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// SchemaConstraint is the profile schema range this build understands.
const SchemaConstraint = "^1.0.0"

// RiskThresholds configures how risk_level is derived from a scored report.
type RiskThresholds struct {
	// ConfidenceFloor: aggregate confidence below this is a high-risk signal.
	ConfidenceFloor float64 `yaml:"confidence_floor" json:"confidence_floor"`
	// BiasSeverity: any bias flag at or above this severity is a high-risk signal.
	BiasSeverity contracts.Severity `yaml:"bias_severity" json:"bias_severity"`
	// MandatoryDimensions: a blindspot on any of these dimensions is a
	// high-risk signal.
	MandatoryDimensions []contracts.BlindspotDimension `yaml:"mandatory_dimensions" json:"mandatory_dimensions"`
	// Rules are CEL expressions over report facts; any rule evaluating to
	// true forces risk_level = HIGH. Evaluation errors fail closed.
	Rules []string `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Policy is one versioned scoring/gating profile.
type Policy struct {
	Name          string `yaml:"name" json:"name"`
	SchemaVersion string `yaml:"schema_version" json:"schema_version"`

	Weights contracts.ConfidenceWeights `yaml:"weights" json:"weights"`

	// Evidence strength saturates past this many distinct sources.
	DistinctSourceSaturation int `yaml:"distinct_source_saturation" json:"distinct_source_saturation"`
	// Fewer distinct sources than this fires SINGLE_SOURCE_DEPENDENCE.
	DistinctSourceMin int `yaml:"distinct_source_min" json:"distinct_source_min"`
	// More than this fraction of items sharing one stance, with no opposing
	// items present, fires STANCE_BIAS.
	StanceBiasFraction float64 `yaml:"stance_bias_fraction" json:"stance_bias_fraction"`
	// Freshness half-life in hours.
	FreshnessHalfLifeHours float64 `yaml:"freshness_half_life_hours" json:"freshness_half_life_hours"`
	// Reports below this aggregate confidence are downgraded instead of
	// published.
	PublishFloor float64 `yaml:"publish_floor" json:"publish_floor"`
	// Default reliability for sources the registry has no rating for.
	ReliabilityFloor float64 `yaml:"reliability_floor" json:"reliability_floor"`

	Risk RiskThresholds `yaml:"risk" json:"risk"`
}

// Default returns the baseline profile. These are defaults, not policy:
// deployments override them via YAML profiles.
func Default() *Policy {
	return &Policy{
		Name:          "default",
		SchemaVersion: "1.0.0",
		Weights: contracts.ConfidenceWeights{
			EvidenceStrength: 0.35,
			Coverage:         0.25,
			Consistency:      0.25,
			Freshness:        0.15,
		},
		DistinctSourceSaturation: 5,
		DistinctSourceMin:        2,
		StanceBiasFraction:       0.8,
		FreshnessHalfLifeHours:   24 * 30,
		PublishFloor:             0.5,
		ReliabilityFloor:         0.3,
		Risk: RiskThresholds{
			ConfidenceFloor:     0.6,
			BiasSeverity:        contracts.SeverityHigh,
			MandatoryDimensions: []contracts.BlindspotDimension{contracts.BlindspotTopic},
		},
	}
}

// Validate checks the profile for structural sanity and schema compatibility.
func (p *Policy) Validate() error {
	if p.SchemaVersion == "" {
		return fmt.Errorf("policy %q: schema_version is required", p.Name)
	}
	v, err := semver.NewVersion(p.SchemaVersion)
	if err != nil {
		return fmt.Errorf("policy %q: invalid schema_version %q: %w", p.Name, p.SchemaVersion, err)
	}
	c, err := semver.NewConstraint(SchemaConstraint)
	if err != nil {
		return fmt.Errorf("parse schema constraint: %w", err)
	}
	if !c.Check(v) {
		return fmt.Errorf("policy %q: schema_version %s outside supported range %s", p.Name, p.SchemaVersion, SchemaConstraint)
	}

	w := p.Weights
	for name, val := range map[string]float64{
		"evidence_strength": w.EvidenceStrength,
		"coverage":          w.Coverage,
		"consistency":       w.Consistency,
		"freshness":         w.Freshness,
	} {
		if val < 0 {
			return fmt.Errorf("policy %q: weight %s is negative", p.Name, name)
		}
	}
	if w.Total() <= 0 {
		return fmt.Errorf("policy %q: weight total must be positive", p.Name)
	}

	for name, val := range map[string]float64{
		"stance_bias_fraction":  p.StanceBiasFraction,
		"publish_floor":         p.PublishFloor,
		"reliability_floor":     p.ReliabilityFloor,
		"risk.confidence_floor": p.Risk.ConfidenceFloor,
	} {
		if val < 0 || val > 1 {
			return fmt.Errorf("policy %q: %s must be in [0,1], got %v", p.Name, name, val)
		}
	}

	if p.DistinctSourceMin < 1 {
		return fmt.Errorf("policy %q: distinct_source_min must be >= 1", p.Name)
	}
	if p.DistinctSourceSaturation < p.DistinctSourceMin {
		return fmt.Errorf("policy %q: distinct_source_saturation must be >= distinct_source_min", p.Name)
	}
	if p.FreshnessHalfLifeHours <= 0 {
		return fmt.Errorf("policy %q: freshness_half_life_hours must be positive", p.Name)
	}
	if p.Risk.BiasSeverity == "" {
		return fmt.Errorf("policy %q: risk.bias_severity is required", p.Name)
	}
	return nil
}
