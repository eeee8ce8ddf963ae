package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "github.com/openexec/krakencore/pkg/errors"
)

func newTestManager() *Manager {
	return NewManager(zap.NewNop())
}

func mustCreate(t *testing.T, m *Manager) *Order {
	t.Helper()
	order, err := m.CreateOrder(validLimitRequest())
	require.NoError(t, err)
	return order
}

func openOrder(t *testing.T, m *Manager) *Order {
	t.Helper()
	order := mustCreate(t, m)
	require.NoError(t, m.SubmitOrder(order.ID))
	require.NoError(t, m.ConfirmOrder(order.ID, "K123"))
	got, err := m.GetOrder(order.ID)
	require.NoError(t, err)
	return got
}

func TestCreateOrderStartsPendingNew(t *testing.T) {
	m := newTestManager()
	order := mustCreate(t, m)

	assert.Equal(t, StatePendingNew, order.State)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.True(t, order.FilledVolume.IsZero())
	assert.Equal(t, int64(1), m.Statistics().OrdersCreated)
}

func TestCreateOrderValidationFailure(t *testing.T) {
	m := newTestManager()
	req := validLimitRequest()
	req.Volume = decimal.Zero

	order, err := m.CreateOrder(req)
	assert.Nil(t, order)
	assert.True(t, pkgerrors.IsInvalidOrder(err))
	assert.Equal(t, int64(0), m.Statistics().OrdersCreated)
}

func TestCreateOrderRiskRejection(t *testing.T) {
	m := NewManager(zap.NewNop(), WithRiskChecks(CreateBasicRiskChecks(RiskLimits{
		MaxOrderVolume: decimal.NewFromFloat(0.5),
	})))
	order, err := m.CreateOrder(validLimitRequest())
	assert.Nil(t, order)
	assert.True(t, pkgerrors.IsRiskRejection(err))
	assert.Equal(t, int64(0), m.Statistics().OrdersCreated)
}

func TestConfirmBeforeSubmitFails(t *testing.T) {
	m := newTestManager()
	order := mustCreate(t, m)

	err := m.ConfirmOrder(order.ID, "K1")
	assert.True(t, pkgerrors.IsOrderError(err))

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StatePendingNew, got.State)
}

func TestSubmitConfirmLifecycle(t *testing.T) {
	m := newTestManager()
	order := mustCreate(t, m)

	require.NoError(t, m.SubmitOrder(order.ID))
	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StatePendingSubmit, got.State)

	require.NoError(t, m.ConfirmOrder(order.ID, "K123"))
	got, _ = m.GetOrder(order.ID)
	assert.Equal(t, StateOpen, got.State)
	assert.Equal(t, "K123", got.ExchangeOrderID)

	// Double submit is illegal.
	assert.True(t, pkgerrors.IsOrderError(m.SubmitOrder(order.ID)))
}

func TestUnknownOrderID(t *testing.T) {
	m := newTestManager()
	id := uuid.New()
	assert.True(t, pkgerrors.IsOrderError(m.SubmitOrder(id)))
	assert.True(t, pkgerrors.IsOrderError(m.CancelOrder(id)))
	assert.True(t, pkgerrors.IsOrderError(m.HandleFill(id, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero)))
	_, err := m.GetOrder(id)
	assert.True(t, pkgerrors.IsOrderError(err))
}

func TestFullFill(t *testing.T) {
	m := newTestManager()
	order := openOrder(t, m)

	err := m.HandleFill(order.ID, decimal.NewFromInt(1), decimal.RequireFromString("50100"), decimal.NewFromInt(10))
	require.NoError(t, err)

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StateFilled, got.State)
	assert.True(t, got.Remaining().IsZero())
	assert.Equal(t, int64(1), m.Statistics().OrdersFilled)
}

func TestPartialFills(t *testing.T) {
	m := newTestManager()
	order := openOrder(t, m)
	half := decimal.RequireFromString("0.5")

	require.NoError(t, m.HandleFill(order.ID, half, decimal.RequireFromString("50000"), decimal.Zero))
	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StatePartiallyFilled, got.State)
	assert.True(t, got.Remaining().Equal(half))

	require.NoError(t, m.HandleFill(order.ID, half, decimal.RequireFromString("50200"), decimal.Zero))
	got, _ = m.GetOrder(order.ID)
	assert.Equal(t, StateFilled, got.State)
	assert.True(t, got.Remaining().IsZero())
}

func TestOverfillRejected(t *testing.T) {
	m := newTestManager()
	order := openOrder(t, m)

	err := m.HandleFill(order.ID, decimal.RequireFromString("1.5"), decimal.NewFromInt(50000), decimal.Zero)
	assert.True(t, pkgerrors.IsOrderError(err))

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StateOpen, got.State)
	assert.True(t, got.FilledVolume.IsZero())
}

func TestTerminalOrdersRejectMutation(t *testing.T) {
	m := newTestManager()
	order := openOrder(t, m)
	require.NoError(t, m.CancelOrder(order.ID))

	assert.True(t, pkgerrors.IsOrderError(m.CancelOrder(order.ID)))
	assert.True(t, pkgerrors.IsOrderError(m.RejectOrder(order.ID, "late")))
	assert.True(t, pkgerrors.IsOrderError(m.HandleFill(order.ID, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero)))
	assert.Equal(t, int64(1), m.Statistics().OrdersCancelled)
}

func TestRejectRecordsReason(t *testing.T) {
	m := newTestManager()
	order := mustCreate(t, m)

	require.NoError(t, m.RejectOrder(order.ID, "insufficient funds"))
	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StateRejected, got.State)
	assert.Equal(t, "insufficient funds", got.RejectReason)
	assert.Equal(t, int64(1), m.Statistics().OrdersRejected)
}

func TestFillHandlersRunInOrderAndAreIsolated(t *testing.T) {
	m := newTestManager()
	var calls []string
	m.AddFillHandler(func(o *Order, ev FillEvent) {
		calls = append(calls, "first")
		panic("broken downstream consumer")
	})
	m.AddFillHandler(func(o *Order, ev FillEvent) {
		calls = append(calls, "second")
		assert.True(t, ev.Full)
		assert.True(t, ev.Remaining.IsZero())
	})

	order := openOrder(t, m)
	err := m.HandleFill(order.ID, decimal.NewFromInt(1), decimal.NewFromInt(50000), decimal.Zero)
	require.NoError(t, err, "a panicking handler must not break fill processing")
	assert.Equal(t, []string{"first", "second"}, calls)

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, StateFilled, got.State)
}

func TestOrderEventHandlerSeesTransitions(t *testing.T) {
	m := newTestManager()
	var seen []OrderState
	m.AddOrderEventHandler(func(ev OrderEvent) {
		seen = append(seen, ev.To)
	})

	order := mustCreate(t, m)
	require.NoError(t, m.SubmitOrder(order.ID))
	require.NoError(t, m.ConfirmOrder(order.ID, "K9"))
	require.NoError(t, m.HandleFill(order.ID, decimal.NewFromInt(1), decimal.NewFromInt(50000), decimal.Zero))

	assert.Equal(t, []OrderState{StatePendingSubmit, StateOpen, StateFilled}, seen)
}

func TestHandlerReceivesReadOnlyCopy(t *testing.T) {
	m := newTestManager()
	var captured *Order
	m.AddFillHandler(func(o *Order, ev FillEvent) { captured = o })

	order := openOrder(t, m)
	require.NoError(t, m.HandleFill(order.ID, decimal.NewFromInt(1), decimal.NewFromInt(50000), decimal.Zero))
	require.NotNil(t, captured)

	// Mutating the copy must not leak into the manager's table.
	captured.Pair = "MUTATED"
	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, "XBT/USD", got.Pair)
}
