// Package contracts defines the shared data model of the quality-verdict
// core: upstream artifacts, normalized evidence, confidence breakdowns,
// quality reports, and review decisions.
//
// Every analytic finding (bias, blindspot, missing backtest) is data on a
// QualityReport, never an error. Errors are reserved for structural and
// concurrency violations.
package contracts

import (
	"encoding/json"
	"time"
)

// Stance is the observed position of a claim or evidence item on its topic.
type Stance string

const (
	StanceSupporting Stance = "SUPPORTING"
	StanceOpposing   Stance = "OPPOSING"
	StanceNeutral    Stance = "NEUTRAL"
)

// Opposes reports whether two stances are in direct opposition.
func (s Stance) Opposes(other Stance) bool {
	return (s == StanceSupporting && other == StanceOpposing) ||
		(s == StanceOpposing && other == StanceSupporting)
}

// ArtifactKind tags the upstream artifact variant.
type ArtifactKind string

const (
	KindJudgment   ArtifactKind = "JUDGMENT"
	KindHypothesis ArtifactKind = "HYPOTHESIS"
	KindNarrative  ArtifactKind = "NARRATIVE"
	KindForecast   ArtifactKind = "FORECAST"
)

// TimeWindow bounds a claim or evidence observation in time.
// A zero End means the window is open-ended.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitempty"`
}

// IsZero reports whether the window is entirely unset.
func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Overlaps reports whether two windows share any instant.
// An unset window overlaps everything.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	if w.IsZero() || other.IsZero() {
		return true
	}
	if !w.End.IsZero() && !other.Start.IsZero() && w.End.Before(other.Start) {
		return false
	}
	if !other.End.IsZero() && !w.Start.IsZero() && other.End.Before(w.Start) {
		return false
	}
	return true
}

// EvidenceItem is a normalized citation. Immutable once ingested.
type EvidenceItem struct {
	SourceID    string    `json:"source_id"`
	Reliability float64   `json:"reliability"` // 0..1
	Stance      Stance    `json:"stance"`
	Timestamp   time.Time `json:"timestamp"`
	Topic       string    `json:"topic,omitempty"`
	Geography   string    `json:"geography,omitempty"`
}

// ClaimPayload carries the claim metadata the core inspects. The body is
// opaque to scoring beyond stance, topic, time, and geography.
type ClaimPayload struct {
	Topic        string          `json:"topic"`
	Stance       Stance          `json:"stance"`
	Window       TimeWindow      `json:"window"`
	Geography    string          `json:"geography,omitempty"`
	HypothesisAt time.Time       `json:"hypothesis_at,omitempty"` // when the hypothesis was stated
	Body         json.RawMessage `json:"body,omitempty"`
}

// BacktestSummary is the historical retrospective evaluation a Forecast must
// carry before it may publish. All three metrics must be populated and in
// [0,1]; pointer fields distinguish absent from zero.
type BacktestSummary struct {
	Precision   *float64 `json:"precision,omitempty"`
	FalseAlarm  *float64 `json:"false_alarm,omitempty"`
	MissedAlert *float64 `json:"missed_alert,omitempty"`
	Window      string   `json:"evaluation_window,omitempty"`
}

// UpstreamArtifact is the tagged variant (Judgment | Hypothesis | Narrative |
// Forecast) entering the scoring pipeline. Citations hold the raw, un-shaped
// list straight from the producer; the evidence adapter normalizes it.
type UpstreamArtifact struct {
	CaseID     string           `json:"case_id"`
	ArtifactID string           `json:"artifact_id"`
	Version    int              `json:"version"`
	Kind       ArtifactKind     `json:"kind"`
	Claim      ClaimPayload     `json:"claim"`
	Citations  json.RawMessage  `json:"citations"`
	Backtest   *BacktestSummary `json:"backtest,omitempty"` // Forecast only
	CreatedAt  time.Time        `json:"created_at"`
}

// Key returns the identity triple scoring is keyed on.
func (a *UpstreamArtifact) Key() ArtifactKey {
	return ArtifactKey{CaseID: a.CaseID, ArtifactID: a.ArtifactID, Version: a.Version}
}

// ArtifactKey uniquely identifies one scored artifact version.
type ArtifactKey struct {
	CaseID     string `json:"case_id"`
	ArtifactID string `json:"artifact_id"`
	Version    int    `json:"version"`
}

// DataQualityWarning records a recoverable defect in upstream input, such as
// a citation dropped for lacking a source identifier.
type DataQualityWarning struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Index  int    `json:"index"` // position in the raw citation list
}
