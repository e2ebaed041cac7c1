package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// RiskLevel categorizes the publication risk of a scored artifact.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// PublicationStatus is the state of a report in the publication gate.
type PublicationStatus string

const (
	StatusScored        PublicationStatus = "SCORED"
	StatusDowngraded    PublicationStatus = "DOWNGRADED"
	StatusPendingReview PublicationStatus = "PENDING_REVIEW"
	StatusApproved      PublicationStatus = "APPROVED"
	StatusPublished     PublicationStatus = "PUBLISHED"
	StatusRejected      PublicationStatus = "REJECTED"
)

// Terminal reports whether no further transition is legal from the status.
func (s PublicationStatus) Terminal() bool {
	return s == StatusDowngraded || s == StatusPublished || s == StatusRejected
}

// Severity grades a bias flag.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// rank orders severities for threshold comparison.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is at or above the threshold severity.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.rank() >= threshold.rank()
}

// BiasKind names a detected bias pattern.
type BiasKind string

const (
	BiasSingleSourceDependence BiasKind = "SINGLE_SOURCE_DEPENDENCE"
	BiasStance                 BiasKind = "STANCE_BIAS"
	BiasConfirmation           BiasKind = "CONFIRMATION_BIAS"
)

// BiasFlag records one fired bias rule with the evidence that triggered it.
type BiasFlag struct {
	Kind        BiasKind `json:"kind"`
	Severity    Severity `json:"severity"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"` // triggering source IDs
	Detail      string   `json:"detail,omitempty"`
}

// BlindspotDimension names a structurally required claim dimension.
type BlindspotDimension string

const (
	BlindspotTopic      BlindspotDimension = "TOPIC"
	BlindspotTimeWindow BlindspotDimension = "TIME_WINDOW"
	BlindspotGeography  BlindspotDimension = "GEOGRAPHY"
	// BlindspotEvidence marks an artifact with no normalized evidence at
	// all. Not an error: the low-confidence report surfaces for review
	// instead of vanishing.
	BlindspotEvidence BlindspotDimension = "EVIDENCE"
)

// BlindspotItem records a claim dimension with no covering evidence.
type BlindspotItem struct {
	Dimension   BlindspotDimension `json:"dimension"`
	Description string             `json:"description"`
}

// Report annotations. Annotations are transparency markers, never errors.
const (
	AnnotationLowSample            = "low_sample"
	AnnotationInsufficientEvidence = "insufficient_evidence"
	AnnotationBacktestDowngrade    = "backtest_downgrade"
	AnnotationConfidenceCapped     = "confidence_capped"
	AnnotationRiskRuleError        = "risk_rule_error"
)

// ConfidenceWeights configures the aggregate combination of the four
// confidence dimensions. Weights are policy, never hardcoded in scoring.
type ConfidenceWeights struct {
	EvidenceStrength float64 `json:"evidence_strength" yaml:"evidence_strength"`
	Coverage         float64 `json:"coverage" yaml:"coverage"`
	Consistency      float64 `json:"consistency" yaml:"consistency"`
	Freshness        float64 `json:"freshness" yaml:"freshness"`
}

// Total returns the weight mass.
func (w ConfidenceWeights) Total() float64 {
	return w.EvidenceStrength + w.Coverage + w.Consistency + w.Freshness
}

// ConfidenceBreakdown decomposes an aggregate confidence score into its four
// inspectable dimensions. Callers never receive the aggregate without it.
type ConfidenceBreakdown struct {
	EvidenceStrength float64 `json:"evidence_strength"`
	Coverage         float64 `json:"coverage"`
	Consistency      float64 `json:"consistency"`
	Freshness        float64 `json:"freshness"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// Aggregate recomputes the weighted aggregate from the dimensions. The stored
// ConfidenceScore must always be reproducible through this function with the
// active weight configuration (modulo an explicit downgrade cap).
func (b ConfidenceBreakdown) Aggregate(w ConfidenceWeights) float64 {
	total := w.Total()
	if total <= 0 {
		return 0
	}
	score := (b.EvidenceStrength*w.EvidenceStrength +
		b.Coverage*w.Coverage +
		b.Consistency*w.Consistency +
		b.Freshness*w.Freshness) / total
	return Clamp01(score)
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// QualityReport is the auditable verdict for one artifact version. Created
// once per scoring invocation and immutable afterwards except for the
// publication status advanced by the gate; re-scoring an artifact creates a
// new version, never mutates history.
type QualityReport struct {
	ReportID   string       `json:"report_id"`
	CaseID     string       `json:"case_id"`
	ArtifactID string       `json:"artifact_id"`
	Version    int          `json:"version"`
	Kind       ArtifactKind `json:"kind"` // effective kind after any downgrade

	Breakdown         ConfidenceBreakdown  `json:"breakdown"`
	BiasFlags         []BiasFlag           `json:"bias_flags"`
	Blindspots        []BlindspotItem      `json:"blindspots"`
	EvidenceDiversity float64              `json:"evidence_diversity"`
	Warnings          []DataQualityWarning `json:"warnings,omitempty"`
	Annotations       []string             `json:"annotations,omitempty"`

	RiskLevel         RiskLevel         `json:"risk_level"`
	PublicationStatus PublicationStatus `json:"publication_status"`

	CreatedAt   time.Time `json:"created_at"`
	ContentHash string    `json:"content_hash,omitempty"`
}

// Key returns the identity triple the report is stored under.
func (r *QualityReport) Key() ArtifactKey {
	return ArtifactKey{CaseID: r.CaseID, ArtifactID: r.ArtifactID, Version: r.Version}
}

// HasAnnotation reports whether the report carries the given marker.
func (r *QualityReport) HasAnnotation(name string) bool {
	for _, a := range r.Annotations {
		if a == name {
			return true
		}
	}
	return false
}

// ComputeContentHash returns the canonical content hash of the report,
// excluding the hash field itself and the publication status, which is the
// one field the gate advances after scoring. The hash therefore stays
// verifiable over the immutable payload for the report's whole lifecycle.
// Canonicalization uses RFC 8785 JCS so the hash is stable across marshal
// orderings.
func (r *QualityReport) ComputeContentHash() (string, error) {
	hashable := *r
	hashable.ContentHash = ""
	hashable.PublicationStatus = ""

	data, err := json.Marshal(&hashable)
	if err != nil {
		return "", fmt.Errorf("marshal report for hashing: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize report: %w", err)
	}

	h := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}
