// Package notify broadcasts publication-state changes so reviewers and
// downstream consumers learn about PENDING_REVIEW entries and terminal
// transitions without polling the store. The pending state itself is
// durable; notification is best-effort signaling on top.
package notify

import (
	"context"
	"time"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// Notification is one publication-state change event.
type Notification struct {
	CaseID     string                      `json:"case_id"`
	ArtifactID string                      `json:"artifact_id"`
	Version    int                         `json:"version"`
	ReportID   string                      `json:"report_id"`
	Status     contracts.PublicationStatus `json:"status"`
	Risk       contracts.RiskLevel         `json:"risk_level"`
	At         time.Time                   `json:"at"`
}

// Notifier publishes state-change notifications.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

// NopNotifier discards notifications. Used when no broker is configured.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(context.Context, Notification) error { return nil }
