// Package fills ingests raw trade executions, classifies execution quality,
// and maintains per-order fill aggregates (VWAP, total volume).
package fills

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openexec/krakencore/internal/orders"
)

// FillType distinguishes maker from taker executions.
type FillType string

const (
	FillTypeMaker FillType = "MAKER"
	FillTypeTaker FillType = "TAKER"
)

// FillQuality is the execution-quality tier derived from slippage as a
// percentage of the reference price.
type FillQuality string

const (
	QualityExcellent FillQuality = "EXCELLENT"
	QualityGood      FillQuality = "GOOD"
	QualityFair      FillQuality = "FAIR"
	QualityPoor      FillQuality = "POOR"
	QualityBad       FillQuality = "BAD"
)

// TradeInfo is the optional execution context supplied by the exchange
// connector. Nil pointer fields mean the connector did not report the
// value; a missing reference price leaves slippage undefined.
type TradeInfo struct {
	Pair           string
	Side           orders.Side
	OrderKind      orders.OrderType
	ReferencePrice *decimal.Decimal
	IsMaker        *bool
}

// TradeFill is one execution (partial or full) against an order. Fills are
// immutable once created and stored append-only.
type TradeFill struct {
	TradeID          string          `json:"trade_id"`
	OrderID          string          `json:"order_id"`
	Pair             string          `json:"pair,omitempty"`
	Side             orders.Side     `json:"side,omitempty"`
	Volume           decimal.Decimal `json:"volume"`
	Price            decimal.Decimal `json:"price"`
	Fee              decimal.Decimal `json:"fee"`
	Cost             decimal.Decimal `json:"cost"`
	Type             FillType        `json:"fill_type"`
	Quality          FillQuality     `json:"fill_quality"`
	Slippage         decimal.Decimal `json:"slippage"`
	PriceImprovement decimal.Decimal `json:"price_improvement"`
	SlippageKnown    bool            `json:"slippage_known"`
	Timestamp        time.Time       `json:"timestamp"`
}

// OrderAnalytics aggregates all fills recorded against one order id. VWAP
// is maintained incrementally so that streaming updates and batch
// processing agree exactly.
type OrderAnalytics struct {
	OrderID        string              `json:"order_id"`
	TotalFills     int                 `json:"total_fills"`
	TotalVolume    decimal.Decimal     `json:"total_volume"`
	TotalCost      decimal.Decimal     `json:"total_cost"`
	TotalFees      decimal.Decimal     `json:"total_fees"`
	VWAP           decimal.Decimal     `json:"volume_weighted_average_price"`
	FirstFillAt    time.Time           `json:"first_fill_at"`
	LastFillAt     time.Time           `json:"last_fill_at"`
	QualityCounts  map[FillQuality]int `json:"quality_counts"`
	MakerFillCount int                 `json:"maker_fill_count"`
}

func newOrderAnalytics(orderID string) *OrderAnalytics {
	return &OrderAnalytics{
		OrderID:       orderID,
		TotalVolume:   decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalFees:     decimal.Zero,
		VWAP:          decimal.Zero,
		QualityCounts: make(map[FillQuality]int),
	}
}

// record folds one fill into the aggregate. The VWAP update is incremental:
// new = (old*oldVolume + price*volume) / (oldVolume+volume).
func (a *OrderAnalytics) record(f *TradeFill) {
	newVolume := a.TotalVolume.Add(f.Volume)
	a.VWAP = a.VWAP.Mul(a.TotalVolume).Add(f.Price.Mul(f.Volume)).Div(newVolume)
	a.TotalVolume = newVolume
	a.TotalCost = a.TotalCost.Add(f.Cost)
	a.TotalFees = a.TotalFees.Add(f.Fee)
	a.TotalFills++
	if a.FirstFillAt.IsZero() {
		a.FirstFillAt = f.Timestamp
	}
	a.LastFillAt = f.Timestamp
	a.QualityCounts[f.Quality]++
	if f.Type == FillTypeMaker {
		a.MakerFillCount++
	}
}

// clone returns a copy safe to hand out of the processor.
func (a *OrderAnalytics) clone() *OrderAnalytics {
	c := *a
	c.QualityCounts = make(map[FillQuality]int, len(a.QualityCounts))
	for k, v := range a.QualityCounts {
		c.QualityCounts[k] = v
	}
	return &c
}
