// Package analytics maintains streaming PnL and execution-quality state
// over processed fills and raises threshold-based risk alerts.
package analytics

import (
	"github.com/shopspring/decimal"
)

// PnLState is the aggregate trading performance state for one session. It
// is owned by the Engine instance that mutates it; there are no process-wide
// globals, so independent sessions never share state.
type PnLState struct {
	TotalPnL          decimal.Decimal `json:"total_pnl"`
	RealizedPnL       decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL     decimal.Decimal `json:"unrealized_pnl"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	GrossLoss         decimal.Decimal `json:"gross_loss"`
	MaxProfit         decimal.Decimal `json:"max_profit"`
	MaxDrawdown       decimal.Decimal `json:"max_drawdown"`
	TotalTrades       int64           `json:"total_trades"`
	TotalVolumeTraded decimal.Decimal `json:"total_volume_traded"`
	TotalFees         decimal.Decimal `json:"total_fees"`
}

// NewPnLState returns a zeroed state.
func NewPnLState() *PnLState {
	return &PnLState{
		TotalPnL:          decimal.Zero,
		RealizedPnL:       decimal.Zero,
		UnrealizedPnL:     decimal.Zero,
		GrossProfit:       decimal.Zero,
		GrossLoss:         decimal.Zero,
		MaxProfit:         decimal.Zero,
		MaxDrawdown:       decimal.Zero,
		TotalVolumeTraded: decimal.Zero,
		TotalFees:         decimal.Zero,
	}
}

// applyRealized folds one realized trade result into the gross totals.
func (s *PnLState) applyRealized(pnl decimal.Decimal) {
	s.RealizedPnL = s.RealizedPnL.Add(pnl)
	if pnl.IsPositive() {
		s.GrossProfit = s.GrossProfit.Add(pnl)
	} else if pnl.IsNegative() {
		s.GrossLoss = s.GrossLoss.Add(pnl.Abs())
	}
}

// refreshTotals recomputes the invariant total = realized + unrealized and
// advances the monotone peak/drawdown trackers.
func (s *PnLState) refreshTotals() {
	s.TotalPnL = s.RealizedPnL.Add(s.UnrealizedPnL)
	if s.TotalPnL.GreaterThan(s.MaxProfit) {
		s.MaxProfit = s.TotalPnL
	}
	if drawdown := s.MaxProfit.Sub(s.TotalPnL); drawdown.GreaterThan(s.MaxDrawdown) {
		s.MaxDrawdown = drawdown
	}
}

// DrawdownPercent returns the max drawdown as a percentage of the peak.
// The peak must be positive for the ratio to be defined; ok is false when
// no profit has been recorded yet.
func (s *PnLState) DrawdownPercent() (decimal.Decimal, bool) {
	if !s.MaxProfit.IsPositive() {
		return decimal.Zero, false
	}
	return s.MaxDrawdown.Div(s.MaxProfit).Mul(decimal.NewFromInt(100)), true
}

// Snapshot returns a copy of the state.
func (s *PnLState) Snapshot() PnLState {
	return *s
}

// position is the running net position for one pair: signed volume (long
// positive, short negative) and the volume-weighted entry price.
type position struct {
	Volume     decimal.Decimal
	EntryPrice decimal.Decimal
}

// apply folds one fill into the position and returns the realized PnL of
// any closed volume. Opposite-direction volume closes against the entry
// price first; any excess flips the position at the fill price.
func (p *position) apply(signedVolume, price decimal.Decimal) decimal.Decimal {
	realized := decimal.Zero
	if p.Volume.IsZero() || p.Volume.Sign() == signedVolume.Sign() {
		newVolume := p.Volume.Add(signedVolume)
		p.EntryPrice = p.EntryPrice.Mul(p.Volume.Abs()).
			Add(price.Mul(signedVolume.Abs())).
			Div(newVolume.Abs())
		p.Volume = newVolume
		return realized
	}

	closing := decimal.Min(p.Volume.Abs(), signedVolume.Abs())
	// Long positions realize price - entry, shorts entry - price.
	perUnit := price.Sub(p.EntryPrice)
	if p.Volume.IsNegative() {
		perUnit = perUnit.Neg()
	}
	realized = perUnit.Mul(closing)

	remainder := signedVolume.Abs().Sub(p.Volume.Abs())
	switch {
	case remainder.IsPositive():
		// Position flips; the excess opens at the fill price.
		p.Volume = remainder.Mul(decimal.NewFromInt(int64(signedVolume.Sign())))
		p.EntryPrice = price
	case remainder.IsZero():
		p.Volume = decimal.Zero
		p.EntryPrice = decimal.Zero
	default:
		p.Volume = p.Volume.Add(signedVolume)
	}
	return realized
}

// unrealized returns the mark-to-market PnL of the open position at the
// given price.
func (p *position) unrealized(mark decimal.Decimal) decimal.Decimal {
	if p.Volume.IsZero() {
		return decimal.Zero
	}
	return mark.Sub(p.EntryPrice).Mul(p.Volume)
}
