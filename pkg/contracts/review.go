package contracts

import "time"

// ReviewOutcome is the verdict a human reviewer records on a pending report.
type ReviewOutcome string

const (
	OutcomeApprove ReviewOutcome = "APPROVE"
	OutcomeReject  ReviewOutcome = "REJECT"
)

// Valid reports whether the outcome is one of the recognized values.
func (o ReviewOutcome) Valid() bool {
	return o == OutcomeApprove || o == OutcomeReject
}

// ReviewDecision links a QualityReport version to a human approve/reject
// outcome. Created only while the report is PENDING_REVIEW; at most one
// decision ever exists per report.
type ReviewDecision struct {
	DecisionID string        `json:"decision_id"`
	ReportID   string        `json:"report_id"`
	CaseID     string        `json:"case_id"`
	Outcome    ReviewOutcome `json:"outcome"`
	Reviewer   string        `json:"reviewer"`
	Note       string        `json:"note,omitempty"`
	DecidedAt  time.Time     `json:"decided_at"`
}
