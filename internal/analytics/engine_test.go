package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/fills"
	"github.com/openexec/krakencore/internal/orders"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(zap.NewNop(), NewPnLState(), opts...)
}

func makeFill(side orders.Side, volume, price string) *fills.TradeFill {
	v, p := d(volume), d(price)
	return &fills.TradeFill{
		TradeID:   uuid.NewString(),
		OrderID:   "O1",
		Pair:      "XBT/USD",
		Side:      side,
		Volume:    v,
		Price:     p,
		Fee:       decimal.Zero,
		Cost:      v.Mul(p),
		Type:      fills.FillTypeTaker,
		Quality:   fills.QualityFair,
		Timestamp: time.Now(),
	}
}

func slippageFill(slippage string) *fills.TradeFill {
	f := makeFill(orders.SideBuy, "0.001", "50000")
	f.Slippage = d(slippage)
	f.PriceImprovement = f.Slippage.Neg()
	f.SlippageKnown = true
	return f
}

func markPrice(price string) *MarketContext {
	p := d(price)
	return &MarketContext{CurrentPrice: &p}
}

func TestPnLInvariantHolds(t *testing.T) {
	e := newTestEngine()

	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), markPrice("110"))
	pnl := e.PnL()
	assert.True(t, pnl.UnrealizedPnL.Equal(d("10")))
	assert.True(t, pnl.RealizedPnL.IsZero())
	assert.True(t, pnl.TotalPnL.Equal(pnl.RealizedPnL.Add(pnl.UnrealizedPnL)))

	e.ProcessFill(makeFill(orders.SideSell, "1", "120"), markPrice("120"))
	pnl = e.PnL()
	assert.True(t, pnl.RealizedPnL.Equal(d("20")))
	assert.True(t, pnl.UnrealizedPnL.IsZero())
	assert.True(t, pnl.TotalPnL.Equal(pnl.RealizedPnL.Add(pnl.UnrealizedPnL)))
	assert.Equal(t, int64(2), pnl.TotalTrades)
	assert.True(t, pnl.TotalVolumeTraded.Equal(d("2")))
}

func TestPositionFlip(t *testing.T) {
	e := newTestEngine()

	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "2", "110"), markPrice("105"))

	pnl := e.PnL()
	assert.True(t, pnl.RealizedPnL.Equal(d("10")), "closing the long realizes +10")
	assert.True(t, e.Position("XBT/USD").Equal(d("-1")), "excess volume flips short")
	// Short 1 from 110 marked at 105 gains 5.
	assert.True(t, pnl.UnrealizedPnL.Equal(d("5")))
	assert.True(t, pnl.TotalPnL.Equal(d("15")))
}

func TestDrawdownNeverDividesByZero(t *testing.T) {
	e := newTestEngine()

	// A loss with no prior profit: max_profit stays zero.
	assert.NotPanics(t, func() {
		e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
		e.ProcessFill(makeFill(orders.SideSell, "1", "90"), nil)
	})

	pnl := e.PnL()
	assert.True(t, pnl.MaxProfit.IsZero())
	assert.True(t, pnl.MaxDrawdown.Equal(d("10")))
	_, ok := pnl.DrawdownPercent()
	assert.False(t, ok, "drawdown percent is undefined without profit")
}

func TestMaxProfitAndDrawdownTracking(t *testing.T) {
	e := newTestEngine()

	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "1", "110"), nil) // +10
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "1", "95"), nil) // -5

	pnl := e.PnL()
	assert.True(t, pnl.MaxProfit.Equal(d("10")))
	assert.True(t, pnl.TotalPnL.Equal(d("5")))
	assert.True(t, pnl.MaxDrawdown.Equal(d("5")))
	assert.True(t, pnl.GrossProfit.Equal(d("10")))
	assert.True(t, pnl.GrossLoss.Equal(d("5")))

	pct, ok := pnl.DrawdownPercent()
	require.True(t, ok)
	assert.True(t, pct.Equal(d("50")))
}

func TestPositionSizeAlert(t *testing.T) {
	e := newTestEngine()
	e.UpdateRiskThreshold(ThresholdMaxPositionSize, d("2"))

	var received []*RiskAlert
	e.AddAlertHandler(func(a *RiskAlert) { received = append(received, a) })

	e.ProcessFill(makeFill(orders.SideBuy, "5", "100"), nil)

	require.NotEmpty(t, received, "expected at least one risk alert")
	alert := received[0]
	assert.Equal(t, "position_size", alert.Metric)
	assert.True(t, alert.Value.Equal(d("5")))
	assert.True(t, alert.Threshold.Equal(d("2")))
	assert.Equal(t, AlertLevelCritical, alert.Level, "5 is past twice the threshold")
}

func TestSlippageAlert(t *testing.T) {
	e := newTestEngine()
	e.UpdateRiskThreshold(ThresholdMaxSlippage, d("10"))

	var metrics []string
	e.AddAlertHandler(func(a *RiskAlert) { metrics = append(metrics, a.Metric) })

	e.ProcessFill(slippageFill("15"), nil)
	assert.Contains(t, metrics, "slippage")
}

func TestThresholdHotUpdateTakesEffectOnNextFill(t *testing.T) {
	e := newTestEngine()
	var count int
	e.AddAlertHandler(func(*RiskAlert) { count++ })

	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	assert.Zero(t, count, "default threshold is not breached by a position of 1")

	e.UpdateRiskThreshold(ThresholdMaxPositionSize, d("0.5"))
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	assert.Equal(t, 1, count)
}

func TestInsufficientDataReturnsNotOK(t *testing.T) {
	e := newTestEngine()

	_, ok := e.CalculateSharpeRatio(time.Hour)
	assert.False(t, ok, "fresh engine has no return samples")

	_, ok = e.CalculateProfitFactor()
	assert.False(t, ok, "fresh engine has no losing trades")

	// Only winners: profit factor still undefined.
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "1", "110"), nil)
	_, ok = e.CalculateProfitFactor()
	assert.False(t, ok)
}

func TestProfitFactor(t *testing.T) {
	e := newTestEngine()
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "1", "110"), nil) // +10
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "1", "95"), nil) // -5

	pf, ok := e.CalculateProfitFactor()
	require.True(t, ok)
	assert.True(t, pf.Equal(d("2")))
}

func TestSharpeRatio(t *testing.T) {
	e := newTestEngine()
	// Twelve round trips with varying outcomes give a return series with
	// nonzero variance.
	prices := []string{"110", "105", "112", "108", "111", "104", "109", "113", "106", "110", "107", "114"}
	for _, exit := range prices {
		e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
		e.ProcessFill(makeFill(orders.SideSell, "1", exit), nil)
	}

	sharpe, ok := e.CalculateSharpeRatio(time.Hour)
	require.True(t, ok)
	assert.Greater(t, sharpe, 0.0, "consistently profitable series has positive sharpe")
}

func TestSharpeRatioZeroVariance(t *testing.T) {
	e := newTestEngine()
	// Buys only, no marks: every per-fill PnL delta is zero.
	for i := 0; i < 15; i++ {
		e.ProcessFill(makeFill(orders.SideBuy, "0.1", "100"), nil)
	}
	_, ok := e.CalculateSharpeRatio(time.Hour)
	assert.False(t, ok)
}

func TestAverageSlippageSmoothing(t *testing.T) {
	e := newTestEngine()

	e.ProcessFill(slippageFill("10"), nil)
	e.ProcessFill(slippageFill("20"), nil)
	e.ProcessFill(slippageFill("5"), nil)

	dash := e.GetRealTimeDashboard()
	quality := dash["execution_quality"].(map[string]interface{})
	// (10 -> (10+20)/2=15 -> (15+5)/2=10): recent fills dominate.
	avg := quality["average_slippage"].(decimal.Decimal)
	assert.True(t, avg.Equal(d("10")), "got %s", avg)
}

func TestAlertHandlersIsolated(t *testing.T) {
	e := newTestEngine()
	e.UpdateRiskThreshold(ThresholdMaxPositionSize, d("1"))

	var second bool
	e.AddAlertHandler(func(*RiskAlert) { panic("broken alert sink") })
	e.AddAlertHandler(func(*RiskAlert) { second = true })

	assert.NotPanics(t, func() {
		e.ProcessFill(makeFill(orders.SideBuy, "5", "100"), nil)
	})
	assert.True(t, second)
}

func TestAlertHistoryCap(t *testing.T) {
	e := newTestEngine(WithAlertHistoryCap(2))
	e.UpdateRiskThreshold(ThresholdMaxPositionSize, d("0.1"))

	for i := 0; i < 5; i++ {
		e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	}
	assert.Len(t, e.AlertHistory(), 2)
}

func TestDashboardFieldNames(t *testing.T) {
	e := newTestEngine()
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), markPrice("105"))

	dash := e.GetRealTimeDashboard()
	require.Contains(t, dash, "pnl_summary")
	require.Contains(t, dash, "trading_stats")
	require.Contains(t, dash, "execution_quality")

	pnl := dash["pnl_summary"].(map[string]interface{})
	for _, key := range []string{"total_pnl", "realized_pnl", "unrealized_pnl", "gross_profit", "gross_loss", "max_profit", "max_drawdown", "total_fees"} {
		assert.Contains(t, pnl, key)
	}

	stats := dash["trading_stats"].(map[string]interface{})
	assert.Contains(t, stats, "total_trades")
	assert.Contains(t, stats, "total_volume_traded")

	quality := dash["execution_quality"].(map[string]interface{})
	assert.Contains(t, quality, "average_slippage")
	assert.Contains(t, quality, "fill_quality_distribution")
}

func TestPerformanceReport(t *testing.T) {
	e := newTestEngine()
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)
	e.ProcessFill(makeFill(orders.SideSell, "1", "110"), nil)

	report := e.GetPerformanceReport(time.Hour)
	summary := report["summary_statistics"].(map[string]interface{})
	assert.Equal(t, 2, summary["total_fills"])

	analysis := report["quality_analysis"].(map[string]interface{})
	dist := analysis["distribution"].(map[string]int64)
	assert.Equal(t, int64(2), dist[string(fills.QualityFair)])
}

func TestSystemHealth(t *testing.T) {
	e := newTestEngine()
	e.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)

	health := e.GetSystemHealth()
	assert.Equal(t, "active", health["status"])
	assert.Equal(t, 1, health["fills_stored"])
	assert.Equal(t, 0, health["alerts_raised"])
}

func TestSessionsDoNotShareState(t *testing.T) {
	a := newTestEngine()
	b := newTestEngine()

	a.ProcessFill(makeFill(orders.SideBuy, "1", "100"), nil)

	assert.Equal(t, int64(1), a.PnL().TotalTrades)
	assert.Equal(t, int64(0), b.PnL().TotalTrades)
}
