package orders

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/events"
	pkgerrors "github.com/openexec/krakencore/pkg/errors"
	"github.com/openexec/krakencore/pkg/metrics"
)

// OrderEvent describes one state transition, delivered synchronously to
// registered order event handlers in registration order.
type OrderEvent struct {
	Order     *Order
	From      OrderState
	To        OrderState
	Reason    string
	Timestamp time.Time
}

// fillNotice pairs a read-only order copy with its fill payload for
// dispatch to fill handlers.
type fillNotice struct {
	Order *Order
	Event FillEvent
}

// Statistics is a point-in-time snapshot of manager counters.
type Statistics struct {
	OrdersCreated   int64 `json:"orders_created"`
	OrdersSubmitted int64 `json:"orders_submitted"`
	OrdersFilled    int64 `json:"orders_filled"`
	OrdersCancelled int64 `json:"orders_cancelled"`
	OrdersRejected  int64 `json:"orders_rejected"`
}

// Manager owns the live order table and drives every order through the
// lifecycle state machine. All mutation is serialized behind a single
// mutex; fills are expected to arrive serially from one upstream source.
type Manager struct {
	logger *zap.Logger

	mu     sync.RWMutex
	orders map[uuid.UUID]*Order
	stats  Statistics

	validators []Validator
	riskChecks []RiskCheck

	fillDispatch  *events.Dispatcher[fillNotice]
	eventDispatch *events.Dispatcher[OrderEvent]
}

// ManagerOption customizes a Manager at construction.
type ManagerOption func(*Manager)

// WithValidators replaces the default validator chain.
func WithValidators(v []Validator) ManagerOption {
	return func(m *Manager) { m.validators = v }
}

// WithRiskChecks replaces the default risk check chain.
func WithRiskChecks(r []RiskCheck) ManagerOption {
	return func(m *Manager) { m.riskChecks = r }
}

// NewManager creates a Manager with the default validators and risk checks
// unless overridden by options.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:        logger,
		orders:        make(map[uuid.UUID]*Order),
		validators:    CreateBasicValidators(),
		riskChecks:    CreateBasicRiskChecks(DefaultRiskLimits()),
		fillDispatch:  events.NewDispatcher[fillNotice]("order_fills", logger),
		eventDispatch: events.NewDispatcher[OrderEvent]("order_events", logger),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddFillHandler registers a callback invoked with a read-only order copy
// and the fill payload on every successful fill. Handlers run synchronously
// in registration order; a panicking handler is isolated at the dispatch
// site and never breaks order processing.
func (m *Manager) AddFillHandler(h func(*Order, FillEvent)) {
	m.fillDispatch.Register(func(n fillNotice) { h(n.Order, n.Event) })
}

// AddOrderEventHandler registers a callback for every state transition.
func (m *Manager) AddOrderEventHandler(h func(OrderEvent)) {
	m.eventDispatch.Register(h)
}

// CreateOrder validates the request, runs the risk checks, and creates an
// order in PENDING_NEW. Validators and risk checks both fail fast; on any
// failure the order is never created.
func (m *Manager) CreateOrder(req *OrderCreationRequest) (*Order, error) {
	for _, validate := range m.validators {
		if err := validate(req); err != nil {
			m.logger.Warn("order request failed validation",
				zap.String("pair", req.Pair), zap.Error(err))
			return nil, err
		}
	}
	for _, check := range m.riskChecks {
		if err := check(req); err != nil {
			m.logger.Warn("order request failed risk check",
				zap.String("pair", req.Pair), zap.Error(err))
			return nil, err
		}
	}

	now := time.Now()
	order := &Order{
		ID:            uuid.New(),
		ClientOrderID: req.ClientOrderID,
		Pair:          req.Pair,
		Side:          req.Side,
		Type:          req.Type,
		Volume:        req.Volume,
		Price:         req.Price,
		FilledVolume:  decimal.Zero,
		State:         StatePendingNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	m.mu.Lock()
	m.orders[order.ID] = order
	m.stats.OrdersCreated++
	m.mu.Unlock()

	metrics.OrdersProcessed.WithLabelValues("created").Inc()
	m.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("pair", order.Pair),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Type)),
		zap.String("volume", order.Volume.String()),
		zap.String("price", order.Price.String()))
	return order.clone(), nil
}

// SubmitOrder moves an order from PENDING_NEW to PENDING_SUBMIT.
func (m *Manager) SubmitOrder(id uuid.UUID) error {
	err := m.transition(id, "submit", StatePendingSubmit, "", func(o *Order) error {
		if o.State != StatePendingNew {
			return pkgerrors.NewOrderError(id.String(), "submit",
				"cannot submit from state "+o.State.String())
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.stats.OrdersSubmitted++
	m.mu.Unlock()
	metrics.OrdersProcessed.WithLabelValues("submitted").Inc()
	return nil
}

// ConfirmOrder moves an order from PENDING_SUBMIT to OPEN and records the
// exchange-assigned id.
func (m *Manager) ConfirmOrder(id uuid.UUID, exchangeOrderID string) error {
	err := m.transition(id, "confirm", StateOpen, "", func(o *Order) error {
		if o.State != StatePendingSubmit {
			return pkgerrors.NewOrderError(id.String(), "confirm",
				"cannot confirm from state "+o.State.String())
		}
		o.ExchangeOrderID = exchangeOrderID
		return nil
	})
	if err != nil {
		return err
	}
	metrics.OrdersProcessed.WithLabelValues("confirmed").Inc()
	return nil
}

// HandleFill applies one execution to an OPEN or PARTIALLY_FILLED order.
// The order moves to FILLED when the remaining volume reaches exactly zero
// (decimal-exact, no epsilon) and to PARTIALLY_FILLED otherwise. A fill
// exceeding the remaining volume is rejected. On success the fill event is
// dispatched to registered fill handlers.
func (m *Manager) HandleFill(id uuid.UUID, volume, price, fee decimal.Decimal) error {
	if !volume.IsPositive() {
		return pkgerrors.NewOrderError(id.String(), "fill", "fill volume must be positive")
	}

	m.mu.Lock()
	order, ok := m.orders[id]
	if !ok {
		m.mu.Unlock()
		return pkgerrors.ErrUnknownOrder(id.String(), "fill")
	}
	if order.State != StateOpen && order.State != StatePartiallyFilled {
		state := order.State
		m.mu.Unlock()
		return pkgerrors.NewOrderError(id.String(), "fill",
			"cannot fill from state "+state.String())
	}
	if volume.GreaterThan(order.Remaining()) {
		remaining := order.Remaining()
		m.mu.Unlock()
		return pkgerrors.NewOrderError(id.String(), "fill",
			"fill volume "+volume.String()+" exceeds remaining "+remaining.String())
	}

	from := order.State
	now := time.Now()
	order.FilledVolume = order.FilledVolume.Add(volume)
	full := order.Remaining().IsZero()
	if full {
		order.State = StateFilled
		m.stats.OrdersFilled++
	} else {
		order.State = StatePartiallyFilled
	}
	order.UpdatedAt = now
	snapshot := order.clone()
	m.mu.Unlock()

	if full {
		metrics.OrdersProcessed.WithLabelValues("filled").Inc()
	}
	m.logger.Info("order fill applied",
		zap.String("order_id", id.String()),
		zap.String("volume", volume.String()),
		zap.String("price", price.String()),
		zap.String("state", snapshot.State.String()))

	event := FillEvent{
		OrderID:   id,
		Volume:    volume,
		Price:     price,
		Fee:       fee,
		Remaining: snapshot.Remaining(),
		Full:      full,
		Timestamp: now,
	}
	m.eventDispatch.Dispatch(OrderEvent{
		Order: snapshot, From: from, To: snapshot.State, Timestamp: now,
	})
	m.fillDispatch.Dispatch(fillNotice{Order: snapshot, Event: event})
	return nil
}

// CancelOrder moves any non-terminal order to CANCELLED.
func (m *Manager) CancelOrder(id uuid.UUID) error {
	err := m.transition(id, "cancel", StateCancelled, "", func(o *Order) error {
		if o.State.IsTerminal() {
			return pkgerrors.NewOrderError(id.String(), "cancel",
				"cannot cancel terminal state "+o.State.String())
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.stats.OrdersCancelled++
	m.mu.Unlock()
	metrics.OrdersProcessed.WithLabelValues("cancelled").Inc()
	return nil
}

// RejectOrder moves any non-terminal order to REJECTED, recording the
// reason.
func (m *Manager) RejectOrder(id uuid.UUID, reason string) error {
	err := m.transition(id, "reject", StateRejected, reason, func(o *Order) error {
		if o.State.IsTerminal() {
			return pkgerrors.NewOrderError(id.String(), "reject",
				"cannot reject terminal state "+o.State.String())
		}
		o.RejectReason = reason
		return nil
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.stats.OrdersRejected++
	m.mu.Unlock()
	metrics.OrdersProcessed.WithLabelValues("rejected").Inc()
	return nil
}

// transition applies guard, moves the order to the target state, bumps
// UpdatedAt, and notifies order event handlers.
func (m *Manager) transition(id uuid.UUID, op string, to OrderState, reason string, guard func(*Order) error) error {
	m.mu.Lock()
	order, ok := m.orders[id]
	if !ok {
		m.mu.Unlock()
		return pkgerrors.ErrUnknownOrder(id.String(), op)
	}
	if err := guard(order); err != nil {
		m.mu.Unlock()
		return err
	}
	from := order.State
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return pkgerrors.NewOrderError(id.String(), op,
			"illegal transition "+from.String()+" -> "+to.String())
	}
	now := time.Now()
	order.State = to
	order.UpdatedAt = now
	snapshot := order.clone()
	m.mu.Unlock()

	m.logger.Info("order state transition",
		zap.String("order_id", id.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	m.eventDispatch.Dispatch(OrderEvent{
		Order: snapshot, From: from, To: to, Reason: reason, Timestamp: now,
	})
	return nil
}

// GetOrder returns a read-only copy of the order.
func (m *Manager) GetOrder(id uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, pkgerrors.ErrUnknownOrder(id.String(), "get")
	}
	return order.clone(), nil
}

// OpenOrders returns read-only copies of all orders in a non-terminal
// state.
func (m *Manager) OpenOrders() []*Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var open []*Order
	for _, o := range m.orders {
		if !o.State.IsTerminal() {
			open = append(open, o.clone())
		}
	}
	return open
}

// Statistics returns a point-in-time snapshot of the manager counters.
func (m *Manager) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
