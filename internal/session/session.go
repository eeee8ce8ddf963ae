// Package session wires one trading session: an order manager, a fill
// processor and an analytics engine sharing a single PnL state. Sessions
// are independent; two sessions never share aggregates.
package session

import (
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/analytics"
	"github.com/openexec/krakencore/internal/config"
	"github.com/openexec/krakencore/internal/fills"
	"github.com/openexec/krakencore/internal/orders"
)

// Session owns the component triad for one trading session.
type Session struct {
	Manager   *orders.Manager
	Processor *fills.Processor
	Engine    *analytics.Engine

	logger *zap.Logger

	mu         sync.RWMutex
	lastPrices map[string]decimal.Decimal
}

// New builds a fully wired session from configuration: manager fills flow
// into the processor, processed fills flow into the analytics engine with
// the last observed market price for the pair attached.
func New(logger *zap.Logger, cfg *config.Config) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	riskCfg := config.RiskConfig{}
	if cfg != nil {
		riskCfg = cfg.Risk
	}

	mgr := orders.NewManager(logger,
		orders.WithRiskChecks(orders.CreateBasicRiskChecks(riskCfg.OrderLimits())))
	proc := fills.NewProcessor(logger)

	engineOpts := []analytics.EngineOption{}
	if len(riskCfg.Thresholds) > 0 {
		engineOpts = append(engineOpts, analytics.WithRiskThresholds(riskCfg.ThresholdDecimals()))
	}
	if riskCfg.AlertHistoryCap > 0 {
		engineOpts = append(engineOpts, analytics.WithAlertHistoryCap(riskCfg.AlertHistoryCap))
	}
	engine := analytics.NewEngine(logger, analytics.NewPnLState(), engineOpts...)

	s := &Session{
		Manager:    mgr,
		Processor:  proc,
		Engine:     engine,
		logger:     logger,
		lastPrices: make(map[string]decimal.Decimal),
	}

	fills.IntegrateWithOrderManager(mgr, proc)
	proc.AddFillHandler(func(f *fills.TradeFill) {
		engine.ProcessFill(f, s.marketContext(f.Pair))
	})
	return s
}

// SetMarketPrice records the last observed market price for a pair; it is
// attached to subsequent fills so the engine can mark open positions.
func (s *Session) SetMarketPrice(pair string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrices[pair] = price
}

func (s *Session) marketContext(pair string) *analytics.MarketContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if price, ok := s.lastPrices[pair]; ok {
		p := price
		return &analytics.MarketContext{CurrentPrice: &p}
	}
	return nil
}

// ApplyRiskThresholds implements config.ThresholdApplier for hot-reload.
func (s *Session) ApplyRiskThresholds(thresholds map[string]float64) {
	for name, v := range thresholds {
		s.Engine.UpdateRiskThreshold(name, decimal.NewFromFloat(v))
	}
}
