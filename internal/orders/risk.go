package orders

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/openexec/krakencore/pkg/errors"
)

// RiskCheck inspects an order creation request and returns an
// *errors.RiskManagementError when a pre-trade limit is breached. Risk
// checks run after all validators pass and fail fast on the first error.
type RiskCheck func(*OrderCreationRequest) error

// RiskLimits are the static pre-trade limits enforced at order creation.
type RiskLimits struct {
	MaxOrderVolume decimal.Decimal `mapstructure:"max_order_volume" yaml:"max_order_volume"`
	MaxOrderValue  decimal.Decimal `mapstructure:"max_order_value" yaml:"max_order_value"`
}

// DefaultRiskLimits returns the limits used when no configuration is
// supplied.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxOrderVolume: decimal.NewFromInt(100),
		MaxOrderValue:  decimal.NewFromInt(1_000_000),
	}
}

// CreateBasicRiskChecks returns the default risk check chain for the given
// limits. A non-positive limit disables that check.
func CreateBasicRiskChecks(limits RiskLimits) []RiskCheck {
	return []RiskCheck{
		maxOrderVolumeCheck(limits.MaxOrderVolume),
		maxOrderValueCheck(limits.MaxOrderValue),
	}
}

func maxOrderVolumeCheck(max decimal.Decimal) RiskCheck {
	return func(req *OrderCreationRequest) error {
		if max.IsPositive() && req.Volume.GreaterThan(max) {
			return pkgerrors.NewRiskRejection("max_order_volume",
				"volume "+req.Volume.String()+" exceeds limit "+max.String())
		}
		return nil
	}
}

func maxOrderValueCheck(max decimal.Decimal) RiskCheck {
	return func(req *OrderCreationRequest) error {
		if !max.IsPositive() {
			return nil
		}
		// Market orders carry no price; their notional is unknown pre-trade.
		if notional := req.Notional(); notional.GreaterThan(max) {
			return pkgerrors.NewRiskRejection("max_order_value",
				"notional "+notional.String()+" exceeds limit "+max.String())
		}
		return nil
	}
}
