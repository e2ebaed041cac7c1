// Package backtest validates that Forecast artifacts carry a well-formed
// historical backtest before they may enter the publication gate. A missing
// or malformed summary is a policy downgrade encoded on the report, not an
// error the caller handles.
package backtest

import (
	"fmt"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// Outcome is the validator's verdict for one artifact.
type Outcome struct {
	// Applicable is false for non-Forecast artifacts, which pass untouched.
	Applicable bool   `json:"applicable"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// Validate checks presence and shape of the artifact's BacktestSummary.
// Only Forecast artifacts are subject to the check.
func Validate(a *contracts.UpstreamArtifact) Outcome {
	if a.Kind != contracts.KindForecast {
		return Outcome{Applicable: false, Valid: true}
	}

	s := a.Backtest
	if s == nil {
		return Outcome{Applicable: true, Reason: "backtest summary absent"}
	}

	for name, metric := range map[string]*float64{
		"precision":    s.Precision,
		"false_alarm":  s.FalseAlarm,
		"missed_alert": s.MissedAlert,
	} {
		if metric == nil {
			return Outcome{Applicable: true, Reason: fmt.Sprintf("backtest metric %s missing", name)}
		}
		if *metric < 0 || *metric > 1 {
			return Outcome{Applicable: true, Reason: fmt.Sprintf("backtest metric %s out of range: %v", name, *metric)}
		}
	}

	return Outcome{Applicable: true, Valid: true}
}
