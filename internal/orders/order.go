// Package orders implements the order lifecycle: a state-machine backed
// order model, pluggable pre-trade validation and risk checks, and the
// Manager that owns the live order table.
package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order sides
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the known constants.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order types
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
)

// Valid reports whether the order type is one of the known constants.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLoss, OrderTypeTakeProfit:
		return true
	}
	return false
}

// RequiresPrice reports whether the order type requires a positive limit
// price. Market orders execute at whatever the book offers.
func (t OrderType) RequiresPrice() bool {
	return t != OrderTypeMarket
}

// Order represents one exchange order tracked by the Manager.
//
// The Manager exclusively owns all Order mutation; downstream consumers
// receive read-only fill events referencing the order id.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	ClientOrderID   string          `json:"client_order_id,omitempty"`
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	Pair            string          `json:"pair"`
	Side            Side            `json:"side"`
	Type            OrderType       `json:"type"`
	Volume          decimal.Decimal `json:"volume"`
	Price           decimal.Decimal `json:"price"`
	FilledVolume    decimal.Decimal `json:"filled_volume"`
	State           OrderState      `json:"state"`
	RejectReason    string          `json:"reject_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Remaining returns the unfilled volume, decimal-exact.
func (o *Order) Remaining() decimal.Decimal {
	return o.Volume.Sub(o.FilledVolume)
}

// clone returns a copy safe to hand to event handlers.
func (o *Order) clone() *Order {
	c := *o
	return &c
}

// OrderCreationRequest carries the caller-supplied parameters for a new
// order. Struct tags drive the first validation pass; the registered
// validator chain runs after.
type OrderCreationRequest struct {
	Pair          string          `json:"pair" validate:"required"`
	Side          Side            `json:"side" validate:"required"`
	Type          OrderType       `json:"type" validate:"required"`
	Volume        decimal.Decimal `json:"volume"`
	Price         decimal.Decimal `json:"price"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
}

// Notional returns volume x price for the request. Zero for market orders
// with no price.
func (r *OrderCreationRequest) Notional() decimal.Decimal {
	return r.Volume.Mul(r.Price)
}

// FillEvent is the payload delivered to registered fill handlers alongside
// a read-only copy of the order.
type FillEvent struct {
	OrderID   uuid.UUID
	Volume    decimal.Decimal
	Price     decimal.Decimal
	Fee       decimal.Decimal
	Remaining decimal.Decimal
	Full      bool
	Timestamp time.Time
}
