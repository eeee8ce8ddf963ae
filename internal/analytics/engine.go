package analytics

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/events"
	"github.com/openexec/krakencore/internal/fills"
	"github.com/openexec/krakencore/internal/orders"
	"github.com/openexec/krakencore/pkg/metrics"
)

// minSharpeSamples is the minimum number of per-fill return samples before
// a Sharpe ratio is reported.
const minSharpeSamples = 10

// defaultAlertHistoryCap bounds the retained alert history; the oldest
// alerts are dropped first.
const defaultAlertHistoryCap = 1000

// MarketContext carries optional market data accompanying a fill. A nil
// CurrentPrice leaves unrealized PnL untouched.
type MarketContext struct {
	CurrentPrice *decimal.Decimal
}

// pnlPoint records the per-fill change in total PnL for windowed return
// statistics.
type pnlPoint struct {
	At    time.Time
	Delta float64
}

// Engine is the real-time analytics engine: an accumulator over fills
// processed in order. One Engine per trading session; the PnL state it
// owns is injected so tests and parallel sessions stay independent.
type Engine struct {
	logger *zap.Logger

	mu               sync.RWMutex
	pnl              *PnLState
	positions        map[string]*position
	unrealizedByPair map[string]decimal.Decimal
	fillHistory      []*fills.TradeFill
	pnlSeries        []pnlPoint

	avgSlippage     decimal.Decimal
	slippageSamples int64
	qualityDist     map[fills.FillQuality]int64

	thresholds map[string]decimal.Decimal
	alerts     []*RiskAlert
	alertCap   int

	alertDispatch *events.Dispatcher[*RiskAlert]
	startedAt     time.Time
}

// EngineOption customizes an Engine at construction.
type EngineOption func(*Engine)

// WithRiskThresholds replaces the default risk threshold map.
func WithRiskThresholds(t map[string]decimal.Decimal) EngineOption {
	return func(e *Engine) {
		e.thresholds = make(map[string]decimal.Decimal, len(t))
		for k, v := range t {
			e.thresholds[k] = v
		}
	}
}

// WithAlertHistoryCap bounds the retained alert history.
func WithAlertHistoryCap(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.alertCap = n
		}
	}
}

// NewEngine creates an analytics engine owning the given PnL state. A nil
// state starts from zero.
func NewEngine(logger *zap.Logger, pnl *PnLState, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pnl == nil {
		pnl = NewPnLState()
	}
	e := &Engine{
		logger:           logger,
		pnl:              pnl,
		positions:        make(map[string]*position),
		unrealizedByPair: make(map[string]decimal.Decimal),
		avgSlippage:      decimal.Zero,
		qualityDist:      make(map[fills.FillQuality]int64),
		thresholds:       DefaultRiskThresholds(),
		alertCap:         defaultAlertHistoryCap,
		alertDispatch:    events.NewDispatcher[*RiskAlert]("risk_alerts", logger),
		startedAt:        time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddAlertHandler registers a callback invoked with every raised alert, in
// registration order, panic-isolated.
func (e *Engine) AddAlertHandler(h func(*RiskAlert)) {
	e.alertDispatch.Register(h)
}

// ProcessFill folds one fill into the running aggregates, recomputes
// unrealized PnL when the market context carries a current price, and runs
// the risk-threshold checks. Fills must arrive in processing order.
func (e *Engine) ProcessFill(fill *fills.TradeFill, mctx *MarketContext) {
	e.mu.Lock()

	e.fillHistory = append(e.fillHistory, fill)
	e.pnl.TotalTrades++
	e.pnl.TotalVolumeTraded = e.pnl.TotalVolumeTraded.Add(fill.Volume)
	e.pnl.TotalFees = e.pnl.TotalFees.Add(fill.Fee)

	before, _ := e.pnl.TotalPnL.Float64()

	pair := fill.Pair
	if pair == "" {
		pair = fill.OrderID
	}
	pos, ok := e.positions[pair]
	if !ok {
		pos = &position{Volume: decimal.Zero, EntryPrice: decimal.Zero}
		e.positions[pair] = pos
	}
	signed := fill.Volume
	if fill.Side == orders.SideSell {
		signed = signed.Neg()
	}
	realized := pos.apply(signed, fill.Price)
	e.pnl.applyRealized(realized)

	if mctx != nil && mctx.CurrentPrice != nil {
		e.unrealizedByPair[pair] = pos.unrealized(*mctx.CurrentPrice)
		total := decimal.Zero
		for _, u := range e.unrealizedByPair {
			total = total.Add(u)
		}
		e.pnl.UnrealizedPnL = total
	}
	e.pnl.refreshTotals()

	after, _ := e.pnl.TotalPnL.Float64()
	e.pnlSeries = append(e.pnlSeries, pnlPoint{At: fill.Timestamp, Delta: after - before})

	// Running average slippage keeps the (old+new)/2 smoothing of the
	// original system for behavioral compatibility; it over-weights
	// recent fills on purpose.
	if fill.SlippageKnown {
		if e.slippageSamples == 0 {
			e.avgSlippage = fill.Slippage
		} else {
			e.avgSlippage = e.avgSlippage.Add(fill.Slippage).Div(decimal.NewFromInt(2))
		}
		e.slippageSamples++
	}
	e.qualityDist[fill.Quality]++

	alerts := e.collectAlertsLocked(fill, pos)
	e.mu.Unlock()

	for _, alert := range alerts {
		metrics.RiskAlertsRaised.WithLabelValues(string(alert.Level)).Inc()
		e.logger.Warn("risk alert raised",
			zap.String("metric", alert.Metric),
			zap.String("level", string(alert.Level)),
			zap.String("value", alert.Value.String()),
			zap.String("threshold", alert.Threshold.String()))
		e.alertDispatch.Dispatch(alert)
	}
}

// collectAlertsLocked evaluates the per-fill threshold checks and records
// breaches in the capped history. Caller holds e.mu.
func (e *Engine) collectAlertsLocked(fill *fills.TradeFill, pos *position) []*RiskAlert {
	var raised []*RiskAlert
	now := fill.Timestamp

	if limit, ok := e.thresholds[ThresholdMaxPositionSize]; ok && limit.IsPositive() {
		if size := pos.Volume.Abs(); size.GreaterThan(limit) {
			raised = append(raised, e.newAlertLocked("position_size", size, limit,
				"position size exceeds configured limit", now))
		}
	}
	if limit, ok := e.thresholds[ThresholdMaxSlippage]; ok && limit.IsPositive() && fill.SlippageKnown {
		if fill.Slippage.GreaterThan(limit) {
			raised = append(raised, e.newAlertLocked("slippage", fill.Slippage, limit,
				"fill slippage exceeds configured limit", now))
		}
	}
	if limit, ok := e.thresholds[ThresholdMaxDrawdown]; ok && limit.IsPositive() {
		if e.pnl.MaxDrawdown.GreaterThan(limit) {
			raised = append(raised, e.newAlertLocked("drawdown", e.pnl.MaxDrawdown, limit,
				"max drawdown exceeds configured limit", now))
		}
	}
	return raised
}

func (e *Engine) newAlertLocked(metric string, value, threshold decimal.Decimal, msg string, at time.Time) *RiskAlert {
	alert := &RiskAlert{
		ID:        uuid.New(),
		Metric:    metric,
		Level:     levelFor(value, threshold),
		Value:     value,
		Threshold: threshold,
		Message:   msg,
		Timestamp: at,
	}
	e.alerts = append(e.alerts, alert)
	if len(e.alerts) > e.alertCap {
		e.alerts = e.alerts[len(e.alerts)-e.alertCap:]
	}
	return alert
}

// UpdateRiskThreshold sets the named threshold; subsequent fills are
// checked against the new value.
func (e *Engine) UpdateRiskThreshold(name string, value decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds[name] = value
}

// RiskThreshold returns the named threshold.
func (e *Engine) RiskThreshold(name string) (decimal.Decimal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.thresholds[name]
	return v, ok
}

// PnL returns a copy of the current PnL state.
func (e *Engine) PnL() PnLState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pnl.Snapshot()
}

// Position returns the net signed position for a pair.
func (e *Engine) Position(pair string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if pos, ok := e.positions[pair]; ok {
		return pos.Volume
	}
	return decimal.Zero
}

// AlertHistory returns the retained alerts, oldest first.
func (e *Engine) AlertHistory() []*RiskAlert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*RiskAlert{}, e.alerts...)
}

// CalculateSharpeRatio computes the Sharpe ratio over per-fill PnL returns
// within the trailing window. ok is false with fewer than the minimum
// sample count or when the return series has no variance.
func (e *Engine) CalculateSharpeRatio(window time.Duration) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var returns []float64
	for _, p := range e.pnlSeries {
		if p.At.After(cutoff) {
			returns = append(returns, p.Delta)
		}
	}
	if len(returns) < minSharpeSamples {
		return 0, false
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	if variance == 0 {
		return 0, false
	}
	return mean / math.Sqrt(variance), true
}

// CalculateProfitFactor returns gross profit over gross loss. ok is false
// when no losing trade has been recorded, rather than dividing by zero.
func (e *Engine) CalculateProfitFactor() (decimal.Decimal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.pnl.GrossLoss.IsPositive() {
		return decimal.Zero, false
	}
	return e.pnl.GrossProfit.Div(e.pnl.GrossLoss), true
}
