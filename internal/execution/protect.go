package execution

import (
	"context"

	"go.uber.org/zap"

	"tradepool/internal/apperr"
	"tradepool/internal/broker"
	"tradepool/internal/bus"
	"tradepool/internal/models"
)

// PlaceProtectiveOrders places the stop-loss and target children an ENTRY
// row asks for and does not yet have. It is keyed entirely off the entry
// row, so it can be re-run safely after a partial failure.
func (e *Engine) PlaceProtectiveOrders(ctx context.Context, strategy *models.Strategy, entry *models.Order) error {
	if entry == nil || (entry.StopLoss == nil && entry.TakeProfit == nil) {
		return nil
	}
	children, err := e.Repo.ListOrdersByRefID(ctx, entry.ID)
	if err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "list children of order %d", entry.ID)
	}
	hasSL, hasTP := false, false
	for _, child := range children {
		switch child.Type {
		case models.OrderTypeSL:
			hasSL = true
		case models.OrderTypeTP:
			hasTP = true
		}
	}

	action := opposite(entry.Action)
	if entry.StopLoss != nil && !hasSL {
		diff := entry.StopLoss.Mul(entry.Price)
		stopPrice := entry.Price.Sub(diff)
		if entry.Action == models.ActionSell {
			stopPrice = entry.Price.Add(diff)
		}
		ids, err := e.Broker.PlaceOrder(ctx, broker.OrderRequest{
			Ticker:    entry.Ticker,
			Action:    action,
			Quantity:  entry.Quantity,
			OrderType: models.ExecStop,
			Price:     stopPrice,
			Tag:       strategy.Name,
		})
		if err != nil {
			return apperr.Because(apperr.ErrBrokerage, err, "place stop order for entry %d", entry.ID)
		}
		if len(ids) == 0 {
			return apperr.New(apperr.ErrBrokerage, "brokerage returned no stop order ids for entry %d", entry.ID)
		}
		detail, err := e.Broker.GetOrder(ctx, ids[0])
		if err != nil {
			return apperr.Because(apperr.ErrBrokerage, err, "fetch stop order %s", ids[0])
		}
		dt := detail.OrderTimestamp
		child := &models.Order{
			BrokerID:   ids[0],
			StrategyID: entry.StrategyID,
			RefID:      &entry.ID,
			Ticker:     entry.Ticker,
			Action:     action,
			Type:       models.OrderTypeSL,
			OrderType:  models.ExecStop,
			Quantity:   entry.Quantity,
			Price:      stopPrice,
			IsActive:   true,
			DT:         &dt,
		}
		if err := e.Repo.InsertOrder(ctx, child); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "persist stop order %s", ids[0])
		}
		e.publish(ctx, bus.EventOrderSL, strategy.Name, child)
		if e.Logger != nil {
			e.Logger.Info("stop order placed",
				zap.Uint64("entry_id", entry.ID),
				zap.Uint64("order_id", child.ID),
				zap.String("broker_id", child.BrokerID),
				zap.String("stop_price", stopPrice.String()))
		}
	}

	if entry.TakeProfit != nil && !hasTP {
		diff := entry.TakeProfit.Mul(entry.Price)
		targetPrice := entry.Price.Add(diff)
		if entry.Action == models.ActionSell {
			targetPrice = entry.Price.Sub(diff)
		}
		ids, err := e.Broker.PlaceTriggerOrder(ctx, broker.TriggerOrderRequest{
			Ticker:       entry.Ticker,
			Action:       action,
			Quantity:     entry.Quantity,
			TriggerPrice: targetPrice,
			TriggerType:  "TARGET",
			Tag:          strategy.Name,
		})
		if err != nil {
			return apperr.Because(apperr.ErrBrokerage, err, "place target order for entry %d", entry.ID)
		}
		if len(ids) == 0 {
			return apperr.New(apperr.ErrBrokerage, "brokerage returned no target order ids for entry %d", entry.ID)
		}
		detail, err := e.Broker.GetOrder(ctx, ids[0])
		if err != nil {
			return apperr.Because(apperr.ErrBrokerage, err, "fetch target order %s", ids[0])
		}
		dt := detail.OrderTimestamp
		child := &models.Order{
			BrokerID:   ids[0],
			StrategyID: entry.StrategyID,
			RefID:      &entry.ID,
			Ticker:     entry.Ticker,
			Action:     action,
			Type:       models.OrderTypeTP,
			OrderType:  models.ExecTriggered,
			Quantity:   entry.Quantity,
			Price:      targetPrice,
			IsActive:   true,
			DT:         &dt,
		}
		if err := e.Repo.InsertOrder(ctx, child); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "persist target order %s", ids[0])
		}
		e.publish(ctx, bus.EventOrderTP, strategy.Name, child)
		if e.Logger != nil {
			e.Logger.Info("target order placed",
				zap.Uint64("entry_id", entry.ID),
				zap.Uint64("order_id", child.ID),
				zap.String("broker_id", child.BrokerID),
				zap.String("target_price", targetPrice.String()))
		}
	}
	return nil
}

// SweepUnprotected re-attempts child placement for filled entries whose
// stop or target order is missing, typically after a crash between the
// entry fill and its protective placements.
func (e *Engine) SweepUnprotected(ctx context.Context, batchSize int) {
	entries, err := e.Repo.ListUnprotectedEntries(ctx, batchSize)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Error("unprotected entry sweep failed", zap.Error(err))
		}
		return
	}
	for i := range entries {
		entry := &entries[i]
		strategy, err := e.Repo.GetStrategyByID(ctx, entry.StrategyID)
		if err != nil || strategy == nil {
			if e.Logger != nil {
				e.Logger.Error("sweep: strategy lookup failed",
					zap.Uint64("order_id", entry.ID),
					zap.Uint64("strategy_id", entry.StrategyID),
					zap.Error(err))
			}
			continue
		}
		if err := e.PlaceProtectiveOrders(ctx, strategy, entry); err != nil {
			if e.Logger != nil {
				e.Logger.Error("sweep: protective placement failed",
					zap.Uint64("order_id", entry.ID),
					zap.Error(err))
			}
		}
	}
}
