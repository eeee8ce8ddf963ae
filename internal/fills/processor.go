package fills

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/events"
	"github.com/openexec/krakencore/pkg/metrics"
)

// Processor ingests raw executions, computes cost, fees, slippage and
// quality, and maintains the global fill log plus per-order aggregates.
// Fills are processed one at a time; all state is serialized behind a
// single mutex.
type Processor struct {
	logger *zap.Logger

	mu        sync.RWMutex
	log       []*TradeFill            // global append-only fill log
	byOrder   map[string][]*TradeFill // per-order append-only history
	analytics map[string]*OrderAnalytics

	totalFillsProcessed int64

	dispatch *events.Dispatcher[*TradeFill]
}

// SystemStatistics is a snapshot of the processor's global counters.
type SystemStatistics struct {
	TotalFillsProcessed int64 `json:"total_fills_processed"`
	TotalOrdersTracked  int   `json:"total_orders_tracked"`
}

// FillSummary is a read-only per-order view of the recorded fills.
type FillSummary struct {
	OrderID     string          `json:"order_id"`
	FillCount   int             `json:"fill_count"`
	TotalVolume decimal.Decimal `json:"total_volume"`
	VWAP        decimal.Decimal `json:"vwap"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	FirstFillAt time.Time       `json:"first_fill_at"`
	LastFillAt  time.Time       `json:"last_fill_at"`
}

// PerformanceMetrics is a derived per-order execution-quality view.
type PerformanceMetrics struct {
	OrderID             string              `json:"order_id"`
	QualityDistribution map[FillQuality]int `json:"quality_distribution"`
	MakerRatio          decimal.Decimal     `json:"maker_ratio"`
	FillDuration        time.Duration       `json:"fill_duration"`
	AverageFillInterval time.Duration       `json:"average_fill_interval"`
}

// NewProcessor creates an empty fill processor.
func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		logger:    logger,
		byOrder:   make(map[string][]*TradeFill),
		analytics: make(map[string]*OrderAnalytics),
		dispatch:  events.NewDispatcher[*TradeFill]("fills", logger),
	}
}

// AddFillHandler registers a callback invoked with every processed fill,
// in registration order, panic-isolated.
func (p *Processor) AddFillHandler(h func(*TradeFill)) {
	p.dispatch.Register(h)
}

// ProcessFill constructs the TradeFill for one execution, records it, and
// dispatches it to registered handlers. Cost is exactly volume x price.
// Slippage and price improvement are computed only when info carries a
// reference price; otherwise both stay zero and are flagged unknown.
func (p *Processor) ProcessFill(tradeID, orderID string, volume, price, fee decimal.Decimal, info *TradeInfo) (*TradeFill, error) {
	start := time.Now()
	if !volume.IsPositive() {
		return nil, fmt.Errorf("process fill %s: volume must be positive, got %s", tradeID, volume)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("process fill %s: price must be positive, got %s", tradeID, price)
	}
	if orderID == "" {
		return nil, fmt.Errorf("process fill %s: order id must not be empty", tradeID)
	}
	if tradeID == "" {
		tradeID = uuid.NewString()
	}

	fill := &TradeFill{
		TradeID:   tradeID,
		OrderID:   orderID,
		Volume:    volume,
		Price:     price,
		Fee:       fee,
		Cost:      volume.Mul(price),
		Type:      FillTypeTaker,
		Quality:   QualityFair,
		Timestamp: start,
	}

	if info != nil {
		fill.Pair = info.Pair
		fill.Side = info.Side
		if info.IsMaker != nil && *info.IsMaker {
			fill.Type = FillTypeMaker
		}
		if info.ReferencePrice != nil && info.ReferencePrice.IsPositive() {
			fill.Slippage = computeSlippage(info.Side, price, *info.ReferencePrice)
			fill.PriceImprovement = fill.Slippage.Neg()
			fill.SlippageKnown = true
			fill.Quality = classifyQuality(slippagePercent(fill.Slippage, *info.ReferencePrice))
		}
	}

	p.mu.Lock()
	p.log = append(p.log, fill)
	p.byOrder[orderID] = append(p.byOrder[orderID], fill)
	agg, ok := p.analytics[orderID]
	if !ok {
		agg = newOrderAnalytics(orderID)
		p.analytics[orderID] = agg
	}
	agg.record(fill)
	p.totalFillsProcessed++
	p.mu.Unlock()

	metrics.FillsProcessed.WithLabelValues(string(fill.Quality)).Inc()
	metrics.FillProcessingLatency.Observe(time.Since(start).Seconds())
	p.logger.Debug("fill processed",
		zap.String("trade_id", fill.TradeID),
		zap.String("order_id", orderID),
		zap.String("volume", volume.String()),
		zap.String("price", price.String()),
		zap.String("quality", string(fill.Quality)))

	p.dispatch.Dispatch(fill)
	return fill, nil
}

// GetOrderAnalytics returns the aggregate for an order. It fails when no
// fill has been recorded for the order id.
func (p *Processor) GetOrderAnalytics(orderID string) (*OrderAnalytics, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	agg, ok := p.analytics[orderID]
	if !ok {
		return nil, fmt.Errorf("no fills recorded for order %s", orderID)
	}
	return agg.clone(), nil
}

// OrderFills returns the append-only fill history for an order, oldest
// first.
func (p *Processor) OrderFills(orderID string) []*TradeFill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*TradeFill{}, p.byOrder[orderID]...)
}

// GetFillSummary returns the per-order read-only summary view.
func (p *Processor) GetFillSummary(orderID string) (*FillSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	agg, ok := p.analytics[orderID]
	if !ok {
		return nil, fmt.Errorf("no fills recorded for order %s", orderID)
	}
	return &FillSummary{
		OrderID:     orderID,
		FillCount:   agg.TotalFills,
		TotalVolume: agg.TotalVolume,
		VWAP:        agg.VWAP,
		TotalFees:   agg.TotalFees,
		FirstFillAt: agg.FirstFillAt,
		LastFillAt:  agg.LastFillAt,
	}, nil
}

// GetPerformanceMetrics returns the per-order execution-quality view:
// quality histogram, maker ratio, and timing derived from fill timestamps.
func (p *Processor) GetPerformanceMetrics(orderID string) (*PerformanceMetrics, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	agg, ok := p.analytics[orderID]
	if !ok {
		return nil, fmt.Errorf("no fills recorded for order %s", orderID)
	}
	pm := &PerformanceMetrics{
		OrderID:             orderID,
		QualityDistribution: agg.clone().QualityCounts,
		MakerRatio:          decimal.Zero,
		FillDuration:        agg.LastFillAt.Sub(agg.FirstFillAt),
	}
	if agg.TotalFills > 0 {
		pm.MakerRatio = decimal.NewFromInt(int64(agg.MakerFillCount)).
			Div(decimal.NewFromInt(int64(agg.TotalFills)))
	}
	if agg.TotalFills > 1 {
		pm.AverageFillInterval = pm.FillDuration / time.Duration(agg.TotalFills-1)
	}
	return pm, nil
}

// GetSystemStatistics returns the processor's global counters.
func (p *Processor) GetSystemStatistics() SystemStatistics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return SystemStatistics{
		TotalFillsProcessed: p.totalFillsProcessed,
		TotalOrdersTracked:  len(p.analytics),
	}
}
