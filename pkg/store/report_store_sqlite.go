package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adjudex/adjudex/pkg/contracts"

	_ "modernc.org/sqlite"
)

// SQLiteReportStore implements ReportStore on modernc.org/sqlite.
type SQLiteReportStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a sqlite-backed store at path.
// Use ":memory:" for tests.
func OpenSQLite(path string) (*SQLiteReportStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// A single pooled connection keeps writes serialized and makes
	// ":memory:" behave as one database rather than one per connection.
	db.SetMaxOpenConns(1)
	return NewSQLiteReportStore(db)
}

// NewSQLiteReportStore wraps an existing connection and runs migrations.
func NewSQLiteReportStore(db *sql.DB) (*SQLiteReportStore, error) {
	s := &SQLiteReportStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteReportStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS quality_reports (
		report_id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		artifact_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		publication_status TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		content JSON NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (case_id, artifact_id, version)
	);
	CREATE TABLE IF NOT EXISTS review_decisions (
		decision_id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL UNIQUE,
		case_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reviewer TEXT NOT NULL,
		note TEXT,
		decided_at TEXT NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteReportStore) Append(ctx context.Context, r *contracts.QualityReport) error {
	content, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `INSERT INTO quality_reports (
		report_id, case_id, artifact_id, version, publication_status, risk_level, content, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		r.ReportID, r.CaseID, r.ArtifactID, r.Version,
		string(r.PublicationStatus), string(r.RiskLevel),
		string(content), r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateVersion
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *SQLiteReportStore) Get(ctx context.Context, key contracts.ArtifactKey) (*contracts.QualityReport, error) {
	query := `SELECT content, publication_status FROM quality_reports
		WHERE case_id = ? AND artifact_id = ? AND version = ?`
	return s.queryOne(ctx, query, key.CaseID, key.ArtifactID, key.Version)
}

func (s *SQLiteReportStore) GetLatest(ctx context.Context, caseID, artifactID string) (*contracts.QualityReport, error) {
	query := `SELECT content, publication_status FROM quality_reports
		WHERE case_id = ? AND artifact_id = ?
		ORDER BY version DESC LIMIT 1`
	return s.queryOne(ctx, query, caseID, artifactID)
}

func (s *SQLiteReportStore) GetByReportID(ctx context.Context, caseID, reportID string) (*contracts.QualityReport, error) {
	query := `SELECT content, publication_status FROM quality_reports
		WHERE case_id = ? AND report_id = ?`
	return s.queryOne(ctx, query, caseID, reportID)
}

func (s *SQLiteReportStore) ListVersions(ctx context.Context, caseID, artifactID string) ([]int, error) {
	query := `SELECT version FROM quality_reports
		WHERE case_id = ? AND artifact_id = ? ORDER BY version ASC`
	rows, err := s.db.QueryContext(ctx, query, caseID, artifactID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteReportStore) TransitionStatus(ctx context.Context, reportID string, from, to contracts.PublicationStatus) error {
	return transition(ctx, s.db, sqliteDialect, reportID, from, to)
}

func (s *SQLiteReportStore) RecordReview(ctx context.Context, decision *contracts.ReviewDecision, chain []contracts.PublicationStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := recordReviewTx(ctx, tx, sqliteDialect, decision, chain); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteReportStore) GetReview(ctx context.Context, reportID string) (*contracts.ReviewDecision, error) {
	query := `SELECT decision_id, report_id, case_id, outcome, reviewer, note, decided_at
		FROM review_decisions WHERE report_id = ?`
	return scanReview(s.db.QueryRowContext(ctx, query, reportID))
}

func (s *SQLiteReportStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteReportStore) queryOne(ctx context.Context, query string, args ...any) (*contracts.QualityReport, error) {
	row := s.db.QueryRowContext(ctx, query, args...)

	var content, status string
	if err := row.Scan(&content, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeReport(content, status)
}

// decodeReport unmarshals the immutable content blob and overlays the live
// publication status column.
func decodeReport(content, status string) (*contracts.QualityReport, error) {
	var r contracts.QualityReport
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, fmt.Errorf("decode report content: %w", err)
	}
	r.PublicationStatus = contracts.PublicationStatus(status)
	return &r, nil
}
