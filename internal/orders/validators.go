package orders

import (
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/openexec/krakencore/pkg/errors"
)

// Validator inspects an order creation request and returns an
// *errors.InvalidOrderError when the request is malformed. Validators run
// in order and fail fast on the first error.
type Validator func(*OrderCreationRequest) error

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// CreateBasicValidators returns the default validation chain applied by the
// Manager before any risk check runs.
func CreateBasicValidators() []Validator {
	return []Validator{
		validateStructTags,
		validatePair,
		validateSideAndType,
		validateVolume,
		validatePrice,
	}
}

func validateStructTags(req *OrderCreationRequest) error {
	if err := structValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if pkgerrors.As(err, &verrs) && len(verrs) > 0 {
			return pkgerrors.NewInvalidOrder(strings.ToLower(verrs[0].Field()), "failed "+verrs[0].Tag()+" validation")
		}
		return pkgerrors.NewInvalidOrder("", err.Error())
	}
	return nil
}

func validatePair(req *OrderCreationRequest) error {
	if strings.TrimSpace(req.Pair) == "" {
		return pkgerrors.NewInvalidOrder("pair", "must not be empty")
	}
	return nil
}

func validateSideAndType(req *OrderCreationRequest) error {
	if !req.Side.Valid() {
		return pkgerrors.NewInvalidOrder("side", "must be BUY or SELL")
	}
	if !req.Type.Valid() {
		return pkgerrors.NewInvalidOrder("type", "unknown order type "+string(req.Type))
	}
	return nil
}

func validateVolume(req *OrderCreationRequest) error {
	if !req.Volume.IsPositive() {
		return pkgerrors.NewInvalidOrder("volume", "must be greater than zero")
	}
	return nil
}

func validatePrice(req *OrderCreationRequest) error {
	if req.Type.RequiresPrice() && !req.Price.IsPositive() {
		return pkgerrors.NewInvalidOrder("price", "required and must be greater than zero for "+string(req.Type)+" orders")
	}
	if req.Price.IsNegative() {
		return pkgerrors.NewInvalidOrder("price", "must not be negative")
	}
	return nil
}
