package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// PostgresReportStore implements ReportStore on lib/pq for server
// deployments where multiple scoring workers share one ledger.
type PostgresReportStore struct {
	db *sql.DB
}

// OpenPostgres connects to the given DSN and runs migrations.
func OpenPostgres(dsn string) (*PostgresReportStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return NewPostgresReportStore(db)
}

// NewPostgresReportStore wraps an existing connection and runs migrations.
func NewPostgresReportStore(db *sql.DB) (*PostgresReportStore, error) {
	s := &PostgresReportStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresReportStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS quality_reports (
		report_id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		artifact_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		publication_status TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		content JSONB NOT NULL,
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

func (s *PostgresReportStore) Append(ctx context.Context, r *contracts.QualityReport) error {
	content, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `INSERT INTO quality_reports (
		report_id, case_id, artifact_id, version, publication_status, risk_level, content, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		r.ReportID, r.CaseID, r.ArtifactID, r.Version,
		string(r.PublicationStatus), string(r.RiskLevel),
		string(content), r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateVersion
		}
		if isUniqueViolation(err) {
			return ErrDuplicateVersion
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) Get(ctx context.Context, key contracts.ArtifactKey) (*contracts.QualityReport, error) {
	query := `SELECT content, publication_status FROM quality_reports
		WHERE case_id = $1 AND artifact_id = $2 AND version = $3`
	return s.queryOne(ctx, query, key.CaseID, key.ArtifactID, key.Version)
}

func (s *PostgresReportStore) GetLatest(ctx context.Context, caseID, artifactID string) (*contracts.QualityReport, error) {
	query := `SELECT content, publication_status FROM quality_reports
		WHERE case_id = $1 AND artifact_id = $2
		ORDER BY version DESC LIMIT 1`
	return s.queryOne(ctx, query, caseID, artifactID)
}

func (s *PostgresReportStore) GetByReportID(ctx context.Context, caseID, reportID string) (*contracts.QualityReport, error) {
	query := `SELECT content, publication_status FROM quality_reports
		WHERE case_id = $1 AND report_id = $2`
	return s.queryOne(ctx, query, caseID, reportID)
}

func (s *PostgresReportStore) ListVersions(ctx context.Context, caseID, artifactID string) ([]int, error) {
	query := `SELECT version FROM quality_reports
		WHERE case_id = $1 AND artifact_id = $2 ORDER BY version ASC`
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

func (s *PostgresReportStore) TransitionStatus(ctx context.Context, reportID string, from, to contracts.PublicationStatus) error {
	return transition(ctx, s.db, postgresDialect, reportID, from, to)
}

func (s *PostgresReportStore) RecordReview(ctx context.Context, decision *contracts.ReviewDecision, chain []contracts.PublicationStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := recordReviewTx(ctx, tx, postgresDialect, decision, chain); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresReportStore) GetReview(ctx context.Context, reportID string) (*contracts.ReviewDecision, error) {
	query := `SELECT decision_id, report_id, case_id, outcome, reviewer, note, decided_at
		FROM review_decisions WHERE report_id = $1`
	return scanReview(s.db.QueryRowContext(ctx, query, reportID))
}

func (s *PostgresReportStore) Close() error {
	return s.db.Close()
}

func (s *PostgresReportStore) queryOne(ctx context.Context, query string, args ...any) (*contracts.QualityReport, error) {
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
