package fills

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/orders"
)

// IntegrateWithOrderManager registers the processor as a fill handler on
// the manager, translating the manager's (order, fill event) callback shape
// into a ProcessFill call. The order's limit price, when set, serves as the
// reference price for slippage; errors are logged by the processor and
// never propagate back into order processing.
func IntegrateWithOrderManager(mgr *orders.Manager, proc *Processor) {
	mgr.AddFillHandler(func(order *orders.Order, ev orders.FillEvent) {
		info := &TradeInfo{
			Pair:      order.Pair,
			Side:      order.Side,
			OrderKind: order.Type,
		}
		if order.Price.IsPositive() {
			ref := order.Price
			info.ReferencePrice = &ref
		}
		// Fills routed through the manager carry no exchange trade id.
		_, err := proc.ProcessFill(uuid.NewString(), order.ID.String(), ev.Volume, ev.Price, ev.Fee, info)
		if err != nil {
			proc.logger.Error("fill rejected by processor during manager integration",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	})
}
