package execution

import (
	"context"

	"go.uber.org/zap"

	"tradepool/internal/apperr"
	"tradepool/internal/bus"
	"tradepool/internal/models"
)

// ReconcileProtective resolves the fate of an entry's protective children
// against brokerage state: a child with any fill is rewritten as executed,
// an unfilled child is cancelled at the brokerage and marked so locally.
// Children that are already inactive are skipped, which makes re-running
// the reconciliation a no-op. Returns true iff at least one child was
// found filled on this run.
func (e *Engine) ReconcileProtective(ctx context.Context, entryID uint64) (bool, error) {
	entry, err := e.Repo.GetOrderByID(ctx, entryID)
	if err != nil {
		return false, apperr.Because(apperr.ErrPersistence, err, "load order %d", entryID)
	}
	if entry == nil {
		return false, apperr.New(apperr.ErrNotFound, "order %d", entryID)
	}
	strategy, err := e.Repo.GetStrategyByID(ctx, entry.StrategyID)
	if err != nil {
		return false, apperr.Because(apperr.ErrPersistence, err, "load strategy %d", entry.StrategyID)
	}
	if strategy == nil {
		return false, apperr.New(apperr.ErrNotFound, "strategy %d", entry.StrategyID)
	}
	children, err := e.Repo.ListOrdersByRefID(ctx, entry.ID)
	if err != nil {
		return false, apperr.Because(apperr.ErrPersistence, err, "list children of order %d", entry.ID)
	}

	executed := false
	for i := range children {
		child := &children[i]
		if child.Type != models.OrderTypeSL && child.Type != models.OrderTypeTP {
			continue
		}
		if !child.IsActive {
			continue
		}
		detail, err := e.Broker.GetOrder(ctx, child.BrokerID)
		if err != nil {
			return executed, apperr.Because(apperr.ErrBrokerage, err, "fetch order %s", child.BrokerID)
		}
		if detail.FilledQuantity.IsPositive() {
			executed = true
			dt := detail.OrderTimestamp
			capital := detail.AveragePrice.Mul(detail.Quantity)
			child.Quantity = detail.FilledQuantity
			child.Price = detail.AveragePrice
			child.CapitalUsed = capital
			child.MarginUsed = capital
			child.IsFilled = true
			child.IsCancelled = false
			child.IsActive = false
			child.DT = &dt
			if err := e.Repo.UpdateOrder(ctx, child); err != nil {
				return executed, apperr.Because(apperr.ErrPersistence, err, "sync order %s", child.BrokerID)
			}
			if e.Logger != nil {
				e.Logger.Info("protective order executed",
					zap.Uint64("entry_id", entry.ID),
					zap.Uint64("order_id", child.ID),
					zap.String("broker_id", child.BrokerID),
					zap.String("type", child.Type),
					zap.String("fill_price", child.Price.String()))
			}
		} else {
			if child.Type == models.OrderTypeTP {
				err = e.Broker.CancelTriggerOrder(ctx, child.BrokerID)
			} else {
				err = e.Broker.CancelOrder(ctx, child.BrokerID)
			}
			if err != nil {
				return executed, apperr.Because(apperr.ErrBrokerage, err, "cancel order %s", child.BrokerID)
			}
			child.IsCancelled = true
			child.IsActive = false
			if err := e.Repo.UpdateOrder(ctx, child); err != nil {
				return executed, apperr.Because(apperr.ErrPersistence, err, "mark order %s cancelled", child.BrokerID)
			}
			e.publish(ctx, bus.EventOrderCancel, strategy.Name, child)
		}
	}
	return executed, nil
}
