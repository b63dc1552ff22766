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

// HandleEntry opens a position for an ENTRY signal: it checks the
// strategy's remaining capital against the last traded price, places the
// order, records the fill, and then attempts the protective child orders.
// The entry row is persisted before any child placement so that a crash
// between the two steps is recoverable by SweepUnprotected.
func (e *Engine) HandleEntry(ctx context.Context, sig bus.Signal) error {
	if sig.Type != bus.SignalEntry {
		return apperr.New(apperr.ErrValidation, "signal type %q is not ENTRY", sig.Type)
	}

	strategy, err := e.Repo.GetStrategyByName(ctx, sig.Strategy)
	if err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "load strategy %q", sig.Strategy)
	}
	if strategy == nil {
		return apperr.New(apperr.ErrNotFound, "strategy %q", sig.Strategy)
	}
	if !strategy.CapitalRemaining.IsPositive() {
		return apperr.New(apperr.ErrInsufficientFunds, "strategy %q has no remaining capital", sig.Strategy)
	}

	ltp, err := e.Broker.LastTradedPrice(ctx, sig.Ticker)
	if err != nil {
		return apperr.Because(apperr.ErrBrokerage, err, "fetch ltp for %s", sig.Ticker)
	}
	required := sig.Quantity.Mul(ltp)
	if required.GreaterThan(strategy.CapitalRemaining) {
		return apperr.New(apperr.ErrInsufficientFunds,
			"strategy %q needs %s but has %s remaining",
			sig.Strategy, required, strategy.CapitalRemaining)
	}

	price := decimal.Zero
	if sig.Price != nil {
		price = *sig.Price
	}
	ids, err := e.Broker.PlaceOrder(ctx, broker.OrderRequest{
		Ticker:    sig.Ticker,
		Action:    sig.Action,
		Quantity:  sig.Quantity,
		OrderType: sig.OrderType,
		Price:     price,
		Tag:       sig.Strategy,
	})
	if err != nil {
		return apperr.Because(apperr.ErrBrokerage, err, "place entry order for %s", sig.Ticker)
	}
	if len(ids) == 0 {
		return apperr.New(apperr.ErrBrokerage, "brokerage returned no order ids for %s", sig.Ticker)
	}
	// The first id is treated as canonical; vendors that slice an order
	// into several children are not fully supported.
	brokerID := ids[0]

	detail, err := e.Broker.GetOrder(ctx, brokerID)
	if err != nil {
		return apperr.Because(apperr.ErrBrokerage, err, "fetch entry order %s", brokerID)
	}

	capital := detail.AveragePrice.Mul(detail.Quantity)
	dt := detail.OrderTimestamp
	entry := &models.Order{
		BrokerID:    brokerID,
		StrategyID:  strategy.ID,
		Ticker:      sig.Ticker,
		Action:      sig.Action,
		Type:        models.OrderTypeEntry,
		OrderType:   sig.OrderType,
		Quantity:    detail.FilledQuantity,
		Price:       detail.AveragePrice,
		CapitalUsed: capital,
		MarginUsed:  capital,
		StopLoss:    sig.SL,
		TakeProfit:  sig.TP,
		IsFilled:    detail.FilledQuantity.IsPositive(),
		IsActive:    true,
		DT:          &dt,
	}
	if err := e.Repo.InsertOrder(ctx, entry); err != nil {
		return apperr.Because(apperr.ErrPersistence, err, "persist entry order %s", brokerID)
	}
	e.publish(ctx, bus.EventOrderOpen, strategy.Name, entry)
	if e.Logger != nil {
		e.Logger.Info("entry order executed",
			append(signalFields(sig),
				zap.Uint64("order_id", entry.ID),
				zap.String("broker_id", brokerID),
				zap.String("fill_price", entry.Price.String()))...)
	}

	// Protective orders are a separate, retryable step keyed by the entry
	// row; a failure here leaves the entry in place for the sweep.
	if err := e.PlaceProtectiveOrders(ctx, strategy, entry); err != nil {
		if e.Logger != nil {
			e.Logger.Error("protective order placement failed, sweep will retry",
				append(signalFields(sig), zap.Uint64("order_id", entry.ID), zap.Error(err))...)
		}
	}
	return nil
}
