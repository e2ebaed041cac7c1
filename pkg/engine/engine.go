// Package engine wires the scoring pipeline and exposes the boundary
// operations a surrounding service consumes: ScoreJudgment,
// GetQualityReport, SubmitReviewDecision, and CompareVersions.
//
// Callers of ScoreJudgment always receive a report (success) or one of the
// structural errors — evidence.ErrMalformedEvidence,
// store.ErrDuplicateVersion, gate.ErrInvalidTransition, store.ErrNotFound,
// store.ErrVersionNotFound, ErrCaseMismatch. Low-quality findings are never
// errors; they are data on the returned report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/adjudex/adjudex/pkg/audit"
	"github.com/adjudex/adjudex/pkg/backtest"
	"github.com/adjudex/adjudex/pkg/bias"
	"github.com/adjudex/adjudex/pkg/consistency"
	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/evidence"
	"github.com/adjudex/adjudex/pkg/gate"
	"github.com/adjudex/adjudex/pkg/notify"
	"github.com/adjudex/adjudex/pkg/observability"
	"github.com/adjudex/adjudex/pkg/policy"
	"github.com/adjudex/adjudex/pkg/scoring"
	"github.com/adjudex/adjudex/pkg/store"
	"github.com/adjudex/adjudex/pkg/versioning"
)

// ErrCaseMismatch rejects an artifact whose own case identity contradicts
// the case the request names.
var ErrCaseMismatch = errors.New("artifact case mismatch")

// SiblingSource supplies the case siblings the consistency checker compares
// against. The upstream case service owns artifact storage; this core only
// reads.
type SiblingSource interface {
	Siblings(ctx context.Context, caseID, topic string) ([]contracts.UpstreamArtifact, error)
}

// Engine runs the scoring-and-gating pipeline over an append-only report
// store. Scoring is pure computation; distinct (case, artifact, version)
// keys may score fully in parallel.
type Engine struct {
	policy   *policy.Policy
	adapter  *evidence.Adapter
	checker  *consistency.Checker
	scorer   *scoring.Scorer
	detector *bias.Detector
	gate     *gate.Gate
	reports  store.ReportStore
	siblings SiblingSource
	notifier notify.Notifier
	auditor  audit.Logger
	obs      *observability.Provider
	logger   *slog.Logger
	clock    func() time.Time
}

// New builds an engine for one policy profile over the given report store.
func New(p *policy.Policy, reports store.ReportStore) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	adapter, err := evidence.NewAdapter(p.ReliabilityFloor)
	if err != nil {
		return nil, err
	}
	g, err := gate.NewGate(p)
	if err != nil {
		return nil, err
	}

	return &Engine{
		policy:   p,
		adapter:  adapter,
		checker:  consistency.NewChecker(),
		scorer:   scoring.NewScorer(p),
		detector: bias.NewDetector(p),
		gate:     g,
		reports:  reports,
		notifier: notify.NopNotifier{},
		auditor:  audit.NewLogger(),
		logger:   slog.Default().With("component", "engine"),
		clock:    time.Now,
	}, nil
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	e.scorer.WithClock(clock)
	return e
}

// WithSiblingSource injects the case sibling reader.
func (e *Engine) WithSiblingSource(s SiblingSource) *Engine {
	e.siblings = s
	return e
}

// WithNotifier injects the state-change notifier.
func (e *Engine) WithNotifier(n notify.Notifier) *Engine {
	e.notifier = n
	return e
}

// WithAuditLogger injects the audit sink.
func (e *Engine) WithAuditLogger(l audit.Logger) *Engine {
	e.auditor = l
	return e
}

// WithObservability injects the otel provider.
func (e *Engine) WithObservability(p *observability.Provider) *Engine {
	e.obs = p
	return e
}

// EvidenceAdapter exposes the adapter so callers can register source
// reliability ratings.
func (e *Engine) EvidenceAdapter() *evidence.Adapter {
	return e.adapter
}

// ScoreJudgment scores one artifact version and appends the resulting
// QualityReport. Idempotent per (case, artifact, version): a second call
// returns the stored report unchanged, including when a concurrent writer
// won the append race.
func (e *Engine) ScoreJudgment(ctx context.Context, caseUID string, artifact *contracts.UpstreamArtifact) (*contracts.QualityReport, error) {
	ctx, done := e.track(ctx, "score_judgment",
		attribute.String("case_id", caseUID),
		attribute.String("artifact_id", artifact.ArtifactID),
		attribute.Int("version", artifact.Version),
	)
	report, err := e.scoreJudgment(ctx, caseUID, artifact)
	done(err)
	return report, err
}

func (e *Engine) scoreJudgment(ctx context.Context, caseUID string, artifact *contracts.UpstreamArtifact) (*contracts.QualityReport, error) {
	// An artifact may omit its case id; one that names a different case than
	// the request is rejected. The caller's artifact is never written to.
	if artifact.CaseID != "" && artifact.CaseID != caseUID {
		return nil, fmt.Errorf("%w: artifact case %q, request case %q", ErrCaseMismatch, artifact.CaseID, caseUID)
	}

	key := contracts.ArtifactKey{CaseID: caseUID, ArtifactID: artifact.ArtifactID, Version: artifact.Version}
	if existing, err := e.reports.Get(ctx, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	items, warnings, err := e.adapter.Normalize(artifact.Citations)
	if err != nil {
		return nil, err
	}

	var siblings []contracts.UpstreamArtifact
	if e.siblings != nil {
		siblings, err = e.siblings.Siblings(ctx, caseUID, artifact.Claim.Topic)
		if err != nil {
			return nil, fmt.Errorf("load case siblings: %w", err)
		}
	}
	consRes := e.checker.Score(artifact.Claim, artifact.ArtifactID, siblings)

	breakdown := e.scorer.Score(items, consRes.Score, artifact.Claim)
	flags := e.detector.DetectBias(items, artifact.Claim)
	blindspots := e.detector.DetectBlindspots(items, artifact.Claim)
	diversity := e.detector.Diversity(items)

	var annotations []string
	if consRes.LowSample {
		annotations = append(annotations, contracts.AnnotationLowSample)
	}
	insufficient := len(items) == 0
	if insufficient {
		annotations = append(annotations, contracts.AnnotationInsufficientEvidence)
		blindspots = append(blindspots, contracts.BlindspotItem{
			Dimension:   contracts.BlindspotEvidence,
			Description: "artifact carries no usable evidence items",
		})
	}

	decision := e.gate.Decide(ctx, gate.Input{
		Kind:                 artifact.Kind,
		Breakdown:            breakdown,
		BiasFlags:            flags,
		Blindspots:           blindspots,
		Diversity:            diversity,
		Backtest:             backtest.Validate(artifact),
		InsufficientEvidence: insufficient,
	})

	report := &contracts.QualityReport{
		ReportID:   uuid.New().String(),
		CaseID:     key.CaseID,
		ArtifactID: key.ArtifactID,
		Version:    key.Version,
		Kind:       decision.Kind,

		Breakdown:         decision.Breakdown,
		BiasFlags:         flags,
		Blindspots:        blindspots,
		EvidenceDiversity: diversity,
		Warnings:          warnings,
		Annotations:       append(annotations, decision.Annotations...),

		RiskLevel:         decision.Risk,
		PublicationStatus: decision.Status,
		CreatedAt:         e.clock().UTC(),
	}
	hash, err := report.ComputeContentHash()
	if err != nil {
		return nil, err
	}
	report.ContentHash = hash

	if err := e.reports.Append(ctx, report); err != nil {
		if errors.Is(err, store.ErrDuplicateVersion) {
			// Lost the append race; the winner's report is authoritative.
			return e.reports.Get(ctx, key)
		}
		return nil, err
	}

	e.audit(ctx, audit.EventScoring, caseUID, "", "score_judgment", report.ReportID, map[string]any{
		"artifact_id":      key.ArtifactID,
		"version":          key.Version,
		"confidence_score": report.Breakdown.ConfidenceScore,
		"risk_level":       report.RiskLevel,
		"status":           report.PublicationStatus,
	})
	e.notify(ctx, report)

	return report, nil
}

// GetQualityReport returns the latest report for an artifact.
func (e *Engine) GetQualityReport(ctx context.Context, caseUID, judgmentUID string) (*contracts.QualityReport, error) {
	ctx, done := e.track(ctx, "get_quality_report",
		attribute.String("case_id", caseUID),
		attribute.String("artifact_id", judgmentUID),
	)
	report, err := e.reports.GetLatest(ctx, caseUID, judgmentUID)
	done(err)
	return report, err
}

// SubmitReviewDecision records a human review outcome against a
// PENDING_REVIEW report and advances the state machine. The first decision
// to commit wins; any later attempt fails with gate.ErrInvalidTransition
// because the report has left PENDING_REVIEW.
func (e *Engine) SubmitReviewDecision(ctx context.Context, caseUID, reportID string, outcome contracts.ReviewOutcome, reviewer string) (*contracts.QualityReport, error) {
	ctx, done := e.track(ctx, "submit_review_decision",
		attribute.String("case_id", caseUID),
		attribute.String("report_id", reportID),
		attribute.String("outcome", string(outcome)),
	)
	report, err := e.submitReviewDecision(ctx, caseUID, reportID, outcome, reviewer)
	done(err)
	return report, err
}

func (e *Engine) submitReviewDecision(ctx context.Context, caseUID, reportID string, outcome contracts.ReviewOutcome, reviewer string) (*contracts.QualityReport, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", gate.ErrInvalidTransition, outcome)
	}

	report, err := e.reports.GetByReportID(ctx, caseUID, reportID)
	if err != nil {
		return nil, err
	}

	chain, err := gate.ApplyReview(report.PublicationStatus, outcome)
	if err != nil {
		return nil, err
	}

	decision := &contracts.ReviewDecision{
		DecisionID: uuid.New().String(),
		ReportID:   reportID,
		CaseID:     caseUID,
		Outcome:    outcome,
		Reviewer:   reviewer,
		DecidedAt:  e.clock().UTC(),
	}
	if err := e.reports.RecordReview(ctx, decision, chain); err != nil {
		if errors.Is(err, store.ErrStaleTransition) || errors.Is(err, store.ErrReviewExists) {
			return nil, gate.ErrInvalidTransition
		}
		return nil, err
	}

	updated, err := e.reports.GetByReportID(ctx, caseUID, reportID)
	if err != nil {
		return nil, err
	}

	e.audit(ctx, audit.EventReview, caseUID, reviewer, "submit_review_decision", reportID, map[string]any{
		"outcome": outcome,
		"status":  updated.PublicationStatus,
	})
	e.notify(ctx, updated)

	return updated, nil
}

// CompareVersions emits the regression delta between two stored versions of
// the same artifact. Either side missing fails with store.ErrVersionNotFound.
func (e *Engine) CompareVersions(ctx context.Context, caseUID, artifactID string, v1, v2 int) (*contracts.ReportDelta, error) {
	ctx, done := e.track(ctx, "compare_versions",
		attribute.String("case_id", caseUID),
		attribute.String("artifact_id", artifactID),
	)
	delta, err := e.compareVersions(ctx, caseUID, artifactID, v1, v2)
	done(err)
	return delta, err
}

func (e *Engine) compareVersions(ctx context.Context, caseUID, artifactID string, v1, v2 int) (*contracts.ReportDelta, error) {
	from, err := e.reports.Get(ctx, contracts.ArtifactKey{CaseID: caseUID, ArtifactID: artifactID, Version: v1})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: version %d", store.ErrVersionNotFound, v1)
		}
		return nil, err
	}
	to, err := e.reports.Get(ctx, contracts.ArtifactKey{CaseID: caseUID, ArtifactID: artifactID, Version: v2})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: version %d", store.ErrVersionNotFound, v2)
		}
		return nil, err
	}
	return versioning.Compare(from, to)
}

// ScoreBatch scores independent artifacts in parallel. Failure of one
// artifact cancels the rest; per-key idempotence makes retries safe.
func (e *Engine) ScoreBatch(ctx context.Context, caseUID string, artifacts []*contracts.UpstreamArtifact) ([]*contracts.QualityReport, error) {
	reports := make([]*contracts.QualityReport, len(artifacts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, artifact := range artifacts {
		g.Go(func() error {
			r, err := e.ScoreJudgment(ctx, caseUID, artifact)
			if err != nil {
				return fmt.Errorf("score %s v%d: %w", artifact.ArtifactID, artifact.Version, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (e *Engine) track(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if e.obs == nil {
		return ctx, func(error) {}
	}
	return e.obs.TrackOperation(ctx, name, attrs...)
}

func (e *Engine) audit(ctx context.Context, t audit.EventType, caseID, actor, action, resource string, meta map[string]any) {
	if err := e.auditor.Record(ctx, t, caseID, actor, action, resource, meta); err != nil {
		e.logger.WarnContext(ctx, "audit record failed", "action", action, "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, r *contracts.QualityReport) {
	n := notify.Notification{
		CaseID:     r.CaseID,
		ArtifactID: r.ArtifactID,
		Version:    r.Version,
		ReportID:   r.ReportID,
		Status:     r.PublicationStatus,
		Risk:       r.RiskLevel,
		At:         e.clock().UTC(),
	}
	if err := e.notifier.Publish(ctx, n); err != nil {
		e.logger.WarnContext(ctx, "notification failed", "report_id", r.ReportID, "error", err)
	}
}
