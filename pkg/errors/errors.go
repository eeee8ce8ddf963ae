// Package errors defines the error taxonomy shared by the order, fill and
// analytics components.
package errors

import (
	"errors"
	"fmt"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// InvalidOrderError indicates that an order creation request failed
// validation. The order is never created.
type InvalidOrderError struct {
	Field  string
	Reason string
}

func (e *InvalidOrderError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid order: %s", e.Reason)
	}
	return fmt.Sprintf("invalid order: %s: %s", e.Field, e.Reason)
}

// NewInvalidOrder builds an InvalidOrderError for a specific request field.
func NewInvalidOrder(field, reason string) *InvalidOrderError {
	return &InvalidOrderError{Field: field, Reason: reason}
}

// RiskManagementError indicates that a pre-trade risk check rejected an
// order creation request. The order is never created.
type RiskManagementError struct {
	Check  string
	Reason string
}

func (e *RiskManagementError) Error() string {
	return fmt.Sprintf("risk check %q rejected order: %s", e.Check, e.Reason)
}

// NewRiskRejection builds a RiskManagementError for a named risk check.
func NewRiskRejection(check, reason string) *RiskManagementError {
	return &RiskManagementError{Check: check, Reason: reason}
}

// OrderError indicates an operation against an unknown order or an order in
// a state that does not permit the operation.
type OrderError struct {
	OrderID string
	Op      string
	Reason  string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s: %s: %s", e.OrderID, e.Op, e.Reason)
}

// NewOrderError builds an OrderError for the given operation.
func NewOrderError(orderID, op, reason string) *OrderError {
	return &OrderError{OrderID: orderID, Op: op, Reason: reason}
}

// ErrUnknownOrder reports an operation referencing an order id that is not
// in the order table.
func ErrUnknownOrder(orderID, op string) *OrderError {
	return NewOrderError(orderID, op, "unknown order id")
}

// IsInvalidOrder reports whether err is (or wraps) an InvalidOrderError.
func IsInvalidOrder(err error) bool {
	var target *InvalidOrderError
	return errors.As(err, &target)
}

// IsRiskRejection reports whether err is (or wraps) a RiskManagementError.
func IsRiskRejection(err error) bool {
	var target *RiskManagementError
	return errors.As(err, &target)
}

// IsOrderError reports whether err is (or wraps) an OrderError.
func IsOrderError(err error) bool {
	var target *OrderError
	return errors.As(err, &target)
}
