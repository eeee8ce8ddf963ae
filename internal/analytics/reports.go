package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// GetRealTimeDashboard returns the dashboard snapshot. Field names are part
// of the consumer contract and must stay stable.
func (e *Engine) GetRealTimeDashboard() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pnlSummary := map[string]interface{}{
		"total_pnl":      e.pnl.TotalPnL,
		"realized_pnl":   e.pnl.RealizedPnL,
		"unrealized_pnl": e.pnl.UnrealizedPnL,
		"gross_profit":   e.pnl.GrossProfit,
		"gross_loss":     e.pnl.GrossLoss,
		"max_profit":     e.pnl.MaxProfit,
		"max_drawdown":   e.pnl.MaxDrawdown,
		"total_fees":     e.pnl.TotalFees,
	}
	if pct, ok := e.pnl.DrawdownPercent(); ok {
		pnlSummary["drawdown_percent"] = pct
	}

	dist := make(map[string]int64, len(e.qualityDist))
	for q, n := range e.qualityDist {
		dist[string(q)] = n
	}

	return map[string]interface{}{
		"pnl_summary": pnlSummary,
		"trading_stats": map[string]interface{}{
			"total_trades":        e.pnl.TotalTrades,
			"total_volume_traded": e.pnl.TotalVolumeTraded,
		},
		"execution_quality": map[string]interface{}{
			"average_slippage":          e.avgSlippage,
			"fill_quality_distribution": dist,
		},
	}
}

// GetPerformanceReport filters the fill history to the lookback window and
// summarizes it.
func (e *Engine) GetPerformanceReport(lookback time.Duration) map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := time.Now().Add(-lookback)
	totalFills := 0
	windowVolume := decimal.Zero
	dist := make(map[string]int64)
	for _, f := range e.fillHistory {
		if f.Timestamp.Before(cutoff) {
			continue
		}
		totalFills++
		windowVolume = windowVolume.Add(f.Volume)
		dist[string(f.Quality)]++
	}

	return map[string]interface{}{
		"summary_statistics": map[string]interface{}{
			"total_fills":  totalFills,
			"total_volume": windowVolume,
			"window_start": cutoff,
			"window_end":   time.Now(),
		},
		"quality_analysis": map[string]interface{}{
			"distribution": dist,
		},
	}
}

// GetSystemHealth reports engine status and retained data counts.
func (e *Engine) GetSystemHealth() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dispatched, failed := e.alertDispatch.Stats()
	return map[string]interface{}{
		"status":         "active",
		"fills_stored":   len(e.fillHistory),
		"alerts_raised":  len(e.alerts),
		"alerts_failed":  failed,
		"alerts_sent":    dispatched,
		"uptime_seconds": int64(time.Since(e.startedAt).Seconds()),
	}
}
