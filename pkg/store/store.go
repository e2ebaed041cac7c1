// Package store persists QualityReports keyed by (case, artifact, version).
// The report history is append-only: scoring payloads are immutable once
// written, and only the publication status column advances, under the gate's
// transition rules.
package store

import (
	"context"
	"errors"

	"github.com/adjudex/adjudex/pkg/contracts"
)

var (
	// ErrNotFound signals a missing report or review lookup.
	ErrNotFound = errors.New("quality report not found")
	// ErrVersionNotFound signals that one side of a version comparison is absent.
	ErrVersionNotFound = errors.New("report version not found")
	// ErrDuplicateVersion signals a lost append race on (case, artifact,
	// version); the caller should re-read the winner.
	ErrDuplicateVersion = errors.New("duplicate report version")
	// ErrReviewExists signals a second review decision for the same report.
	ErrReviewExists = errors.New("review decision already recorded")
)

// ReportStore is the append-only quality report ledger.
type ReportStore interface {
	// Append writes a new report. The store enforces uniqueness on
	// (case_id, artifact_id, version); the losing concurrent writer gets
	// ErrDuplicateVersion.
	Append(ctx context.Context, r *contracts.QualityReport) error

	// Get returns the report for an exact version key.
	Get(ctx context.Context, key contracts.ArtifactKey) (*contracts.QualityReport, error)

	// GetLatest returns the highest-version report for an artifact.
	GetLatest(ctx context.Context, caseID, artifactID string) (*contracts.QualityReport, error)

	// GetByReportID returns a report by its report identity within a case.
	GetByReportID(ctx context.Context, caseID, reportID string) (*contracts.QualityReport, error)

	// ListVersions returns all stored versions for an artifact, ascending.
	ListVersions(ctx context.Context, caseID, artifactID string) ([]int, error)

	// TransitionStatus advances the publication status with an optimistic
	// from-state check. A report no longer in the from state yields
	// gate.ErrInvalidTransition semantics via ErrStaleTransition.
	TransitionStatus(ctx context.Context, reportID string, from, to contracts.PublicationStatus) error

	// RecordReview atomically records the review decision and walks the
	// resulting status chain. The first decision to commit wins; later
	// attempts fail because the report has left PENDING_REVIEW.
	RecordReview(ctx context.Context, decision *contracts.ReviewDecision, chain []contracts.PublicationStatus) error

	// GetReview returns the review decision for a report, if any.
	GetReview(ctx context.Context, reportID string) (*contracts.ReviewDecision, error)

	Close() error
}

// ErrStaleTransition signals that the optimistic from-state check failed:
// another writer already moved the report.
var ErrStaleTransition = errors.New("report not in expected state")
