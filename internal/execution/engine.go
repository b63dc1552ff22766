// Package execution turns validated signals into brokerage orders and
// keeps the local order book reconciled with the brokerage's view.
package execution

import (
	"context"

	"go.uber.org/zap"

	"tradepool/internal/broker"
	"tradepool/internal/bus"
	"tradepool/internal/models"
	"tradepool/internal/repository"
)

// Engine executes entry and exit signals against one brokerage account.
// All collaborators are injected at startup; the engine holds no global
// state and is safe for concurrent use across signals.
type Engine struct {
	Repo   repository.Repository
	Broker broker.Broker
	Bus    bus.Publisher
	Logger *zap.Logger
}

func opposite(action string) string {
	if action == models.ActionBuy {
		return models.ActionSell
	}
	return models.ActionBuy
}

// publish emits an order event, best effort. A missing publisher or a
// publish failure never fails the operation that produced the order.
func (e *Engine) publish(ctx context.Context, event string, strategy string, order *models.Order) {
	if e.Bus == nil || order == nil {
		return
	}
	err := e.Bus.PublishOrderEvent(ctx, bus.OrderEvent{
		Event:    event,
		OrderID:  order.ID,
		BrokerID: order.BrokerID,
		Strategy: strategy,
		Ticker:   order.Ticker,
		Action:   order.Action,
		Quantity: order.Quantity,
		Price:    order.Price,
		At:       order.UpdatedAt,
	})
	if err != nil && e.Logger != nil {
		e.Logger.Warn("order event publish failed",
			zap.String("event", event),
			zap.Uint64("order_id", order.ID),
			zap.Error(err))
	}
}

func signalFields(sig bus.Signal) []zap.Field {
	return []zap.Field{
		zap.String("strategy", sig.Strategy),
		zap.String("ticker", sig.Ticker),
		zap.String("action", sig.Action),
		zap.String("type", sig.Type),
		zap.String("order_type", sig.OrderType),
		zap.String("quantity", sig.Quantity.String()),
	}
}
