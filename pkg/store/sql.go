package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// dialect covers the placeholder differences between the two backends.
type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

// rebind rewrites ? placeholders to $n for postgres.
func (d dialect) rebind(query string) string {
	if d != postgresDialect {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// transition performs the optimistic single-writer status move: the UPDATE
// only applies while the report is still in the expected from state, so the
// first committer wins and stale writers fail instead of clobbering.
func transition(ctx context.Context, db execQuerier, d dialect, reportID string, from, to contracts.PublicationStatus) error {
	query := d.rebind(`UPDATE quality_reports SET publication_status = ?
		WHERE report_id = ? AND publication_status = ?`)

	res, err := db.ExecContext(ctx, query, string(to), reportID, string(from))
	if err != nil {
		return fmt.Errorf("transition report %s: %w", reportID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition report %s: %w", reportID, err)
	}
	if rows > 0 {
		return nil
	}

	// Distinguish a missing report from a lost race.
	var one int
	err = db.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM quality_reports WHERE report_id = ?`), reportID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStaleTransition
}

// recordReviewTx walks the review-induced status chain and records the
// decision inside one transaction. The first transition leaves
// PENDING_REVIEW; its optimistic check is the serialization point.
func recordReviewTx(ctx context.Context, tx *sql.Tx, d dialect, decision *contracts.ReviewDecision, chain []contracts.PublicationStatus) error {
	from := contracts.StatusPendingReview
	for _, next := range chain {
		if err := transition(ctx, tx, d, decision.ReportID, from, next); err != nil {
			return err
		}
		from = next
	}

	query := d.rebind(`INSERT INTO review_decisions (
		decision_id, report_id, case_id, outcome, reviewer, note, decided_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := tx.ExecContext(ctx, query,
		decision.DecisionID, decision.ReportID, decision.CaseID,
		string(decision.Outcome), decision.Reviewer, decision.Note,
		decision.DecidedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrReviewExists
		}
		return fmt.Errorf("insert review decision: %w", err)
	}
	return nil
}

func scanReview(row *sql.Row) (*contracts.ReviewDecision, error) {
	var (
		decisionID string
		reportID   string
		caseID     string
		outcome    string
		reviewer   string
		note       sql.NullString
		decidedAt  string
	)
	if err := row.Scan(&decisionID, &reportID, &caseID, &outcome, &reviewer, &note, &decidedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contracts.ReviewDecision{
		DecisionID: decisionID,
		ReportID:   reportID,
		CaseID:     caseID,
		Outcome:    contracts.ReviewOutcome(outcome),
		Reviewer:   reviewer,
		Note:       note.String,
		DecidedAt:  parseTime(decidedAt),
	}, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
