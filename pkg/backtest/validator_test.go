package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adjudex/adjudex/pkg/contracts"
)

func f(v float64) *float64 { return &v }

func forecast(s *contracts.BacktestSummary) *contracts.UpstreamArtifact {
	return &contracts.UpstreamArtifact{Kind: contracts.KindForecast, Backtest: s}
}

func TestNonForecastNotApplicable(t *testing.T) {
	for _, kind := range []contracts.ArtifactKind{
		contracts.KindJudgment,
		contracts.KindHypothesis,
		contracts.KindNarrative,
	} {
		out := Validate(&contracts.UpstreamArtifact{Kind: kind})
		assert.False(t, out.Applicable, string(kind))
		assert.True(t, out.Valid, string(kind))
	}
}

func TestForecastValidSummary(t *testing.T) {
	out := Validate(forecast(&contracts.BacktestSummary{
		Precision:   f(0.9),
		FalseAlarm:  f(0.05),
		MissedAlert: f(0.1),
	}))
	assert.True(t, out.Applicable)
	assert.True(t, out.Valid)
	assert.Empty(t, out.Reason)
}

func TestForecastMissingSummary(t *testing.T) {
	out := Validate(forecast(nil))
	assert.True(t, out.Applicable)
	assert.False(t, out.Valid)
	assert.Equal(t, "backtest summary absent", out.Reason)
}

func TestForecastMissingMetric(t *testing.T) {
	out := Validate(forecast(&contracts.BacktestSummary{
		Precision:  f(0.9),
		FalseAlarm: f(0.05),
	}))
	assert.True(t, out.Applicable)
	assert.False(t, out.Valid)
	assert.Contains(t, out.Reason, "missed_alert")
}

func TestForecastMetricOutOfRange(t *testing.T) {
	out := Validate(forecast(&contracts.BacktestSummary{
		Precision:   f(1.2),
		FalseAlarm:  f(0.05),
		MissedAlert: f(0.1),
	}))
	assert.False(t, out.Valid)
	assert.Contains(t, out.Reason, "precision")
	assert.Contains(t, out.Reason, "out of range")

	out = Validate(forecast(&contracts.BacktestSummary{
		Precision:   f(0.9),
		FalseAlarm:  f(-0.01),
		MissedAlert: f(0.1),
	}))
	assert.False(t, out.Valid)
	assert.Contains(t, out.Reason, "false_alarm")
}

func TestBoundaryValuesAccepted(t *testing.T) {
	out := Validate(forecast(&contracts.BacktestSummary{
		Precision:   f(0),
		FalseAlarm:  f(1),
		MissedAlert: f(0.5),
	}))
	assert.True(t, out.Valid)
}
