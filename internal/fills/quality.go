package fills

import (
	"github.com/shopspring/decimal"

	"github.com/openexec/krakencore/internal/orders"
)

// Quality tier breakpoints, expressed as slippage percent of the reference
// price. The ladder is monotonic: lower slippage never classifies worse.
//
//	pct <= 0      EXCELLENT (price improvement or exact)
//	pct <= 0.02%  GOOD
//	pct <= 0.04%  FAIR
//	pct <= 0.05%  POOR
//	pct >  0.05%  BAD
var (
	goodThresholdPct = decimal.NewFromFloat(0.02)
	fairThresholdPct = decimal.NewFromFloat(0.04)
	poorThresholdPct = decimal.NewFromFloat(0.05)

	hundred = decimal.NewFromInt(100)
)

// computeSlippage returns the signed slippage of a fill against the
// reference price. Positive means adverse: a buy filled above reference or
// a sell filled below it.
func computeSlippage(side orders.Side, price, reference decimal.Decimal) decimal.Decimal {
	if side == orders.SideSell {
		return reference.Sub(price)
	}
	return price.Sub(reference)
}

// slippagePercent converts signed slippage into a percentage of the
// reference price.
func slippagePercent(slippage, reference decimal.Decimal) decimal.Decimal {
	if !reference.IsPositive() {
		return decimal.Zero
	}
	return slippage.Div(reference).Mul(hundred)
}

// classifyQuality maps slippage-percent onto the quality ladder.
func classifyQuality(pct decimal.Decimal) FillQuality {
	switch {
	case pct.LessThanOrEqual(decimal.Zero):
		return QualityExcellent
	case pct.LessThanOrEqual(goodThresholdPct):
		return QualityGood
	case pct.LessThanOrEqual(fairThresholdPct):
		return QualityFair
	case pct.LessThanOrEqual(poorThresholdPct):
		return QualityPoor
	}
	return QualityBad
}
