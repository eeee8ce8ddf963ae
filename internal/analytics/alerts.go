package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertLevel is the severity of a risk alert.
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "INFO"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// RiskAlert is a point-in-time threshold breach notification. Alerts are
// delivered once to registered handlers and retained in a capped history.
type RiskAlert struct {
	ID        uuid.UUID       `json:"id"`
	Metric    string          `json:"metric"`
	Level     AlertLevel      `json:"level"`
	Value     decimal.Decimal `json:"value"`
	Threshold decimal.Decimal `json:"threshold"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// Risk threshold names understood by the engine's per-fill checks.
const (
	ThresholdMaxPositionSize = "max_position_size"
	ThresholdMaxSlippage     = "max_slippage"
	ThresholdMaxDrawdown     = "max_drawdown"
)

// DefaultRiskThresholds returns the threshold map used when no
// configuration is supplied. A zero threshold disables its check.
func DefaultRiskThresholds() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		ThresholdMaxPositionSize: decimal.NewFromInt(100),
		ThresholdMaxSlippage:     decimal.NewFromInt(50),
		ThresholdMaxDrawdown:     decimal.NewFromInt(10_000),
	}
}

// levelFor grades a breach: observed at or past twice the threshold is
// critical, anything past the threshold is a warning.
func levelFor(value, threshold decimal.Decimal) AlertLevel {
	if value.GreaterThanOrEqual(threshold.Mul(decimal.NewFromInt(2))) {
		return AlertLevelCritical
	}
	return AlertLevelWarning
}
