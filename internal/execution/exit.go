package execution

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradepool/internal/apperr"
	"tradepool/internal/broker"
	"tradepool/internal/bus"
	"tradepool/internal/models"
)

// HandleExit closes the strategy's open entries for the signaled ticker.
// Each entry first gets its protective children reconciled; entries whose
// stop or target already executed need no closing order. Failures are
// per-entry: one bad entry does not stop the rest of the run.
//
// An empty signal ticker closes every open entry for the strategy.
func (e *Engine) HandleExit(ctx context.Context, sig bus.Signal) error {
	if sig.Type != bus.SignalExit {
		return apperr.New(apperr.ErrValidation, "signal type %q is not EXIT", sig.Type)
	}

	strategy, err := e.Repo.GetStrategyByName(ctx, sig.Strategy)
	if err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "load strategy %q", sig.Strategy)
	}
	if strategy == nil {
		return apperr.New(apperr.ErrNotFound, "strategy %q", sig.Strategy)
	}

	entries, err := e.Repo.ListOpenEntryOrders(ctx, strategy.ID, sig.Ticker)
	if err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "list open entries for strategy %q", sig.Strategy)
	}
	if len(entries) == 0 {
		// A signal can legitimately overtake its entry's downstream
		// effects; an empty result is not an error.
		if e.Logger != nil {
			e.Logger.Info("no open entries to exit", signalFields(sig)...)
		}
		return nil
	}

	for i := range entries {
		entry := &entries[i]
		if err := e.closeEntry(ctx, sig, strategy, entry); err != nil {
			if e.Logger != nil {
				e.Logger.Error("exit failed for entry, continuing",
					append(signalFields(sig),
						zap.Uint64("order_id", entry.ID),
						zap.String("broker_id", entry.BrokerID),
						zap.Error(err))...)
			}
		}
	}
	return nil
}

func (e *Engine) closeEntry(ctx context.Context, sig bus.Signal, strategy *models.Strategy, entry *models.Order) error {
	executed, err := e.ReconcileProtective(ctx, entry.ID)
	if err != nil {
		return err
	}
	if executed {
		// A protective order already took the position out.
		if e.Logger != nil {
			e.Logger.Info("entry already closed by protective order",
				zap.Uint64("order_id", entry.ID),
				zap.String("broker_id", entry.BrokerID))
		}
		return nil
	}

	orderType := sig.OrderType
	if orderType == "" {
		orderType = models.ExecMarket
	}
	price := decimal.Zero
	if sig.Price != nil {
		price = *sig.Price
	}
	action := opposite(entry.Action)
	ids, err := e.Broker.PlaceOrder(ctx, broker.OrderRequest{
		Ticker:    entry.Ticker,
		Action:    action,
		Quantity:  entry.Quantity,
		OrderType: orderType,
		Price:     price,
		Tag:       strategy.Name,
	})
	if err != nil {
		return apperr.Because(apperr.ErrBrokerage, err, "place closing order for entry %d", entry.ID)
	}
	if len(ids) == 0 {
		return apperr.New(apperr.ErrBrokerage, "brokerage returned no closing order ids for entry %d", entry.ID)
	}
	detail, err := e.Broker.GetOrder(ctx, ids[0])
	if err != nil {
		return apperr.Because(apperr.ErrBrokerage, err, "fetch closing order %s", ids[0])
	}

	entry.ExitQuantity = entry.Quantity
	entry.IsActive = false
	if err := e.Repo.UpdateOrder(ctx, entry); err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "close entry order %d", entry.ID)
	}

	capital := detail.AveragePrice.Mul(detail.Quantity)
	dt := detail.OrderTimestamp
	closing := &models.Order{
		BrokerID:    ids[0],
		StrategyID:  strategy.ID,
		RefID:       &entry.ID,
		Ticker:      entry.Ticker,
		Action:      action,
		Type:        models.OrderTypeExit,
		OrderType:   orderType,
		Quantity:    detail.FilledQuantity,
		Price:       detail.AveragePrice,
		CapitalUsed: capital,
		MarginUsed:  capital,
		IsFilled:    detail.FilledQuantity.IsPositive(),
		IsActive:    false,
		DT:          &dt,
	}
	if err := e.Repo.InsertOrder(ctx, closing); err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "persist closing order %s", ids[0])
	}
	e.publish(ctx, bus.EventOrderClose, strategy.Name, closing)
	if e.Logger != nil {
		e.Logger.Info("entry exited",
			zap.Uint64("entry_id", entry.ID),
			zap.Uint64("order_id", closing.ID),
			zap.String("broker_id", closing.BrokerID),
			zap.String("fill_price", closing.Price.String()))
	}
	return nil
}
