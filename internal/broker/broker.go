// Package broker abstracts the brokerage used for order execution and
// provides an in-memory simulator alongside the Upstox REST implementation.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest describes a regular (market / limit / stop) order.
type OrderRequest struct {
	Ticker    string
	Action    string // BUY or SELL
	Quantity  decimal.Decimal
	OrderType string // MARKET, LIMIT, SL, SL-M
	Price     decimal.Decimal
	Tag       string // strategy name, echoed back by the brokerage
}

// TriggerOrderRequest describes a conditional order that activates when
// the market reaches TriggerPrice.
type TriggerOrderRequest struct {
	Ticker       string
	Action       string
	Quantity     decimal.Decimal
	TriggerPrice decimal.Decimal
	TriggerType  string
	Tag          string
}

// OrderDetail is the brokerage's view of a single order.
type OrderDetail struct {
	OrderID        string
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	AveragePrice   decimal.Decimal
	Status         string
	OrderTimestamp time.Time
}

// Broker is the execution surface against the brokerage. Place calls
// return the brokerage's order ids; some vendors split one request into
// several child orders, hence the slice.
type Broker interface {
	Name() string
	PlaceOrder(ctx context.Context, req OrderRequest) ([]string, error)
	PlaceTriggerOrder(ctx context.Context, req TriggerOrderRequest) ([]string, error)
	GetOrder(ctx context.Context, orderID string) (*OrderDetail, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelTriggerOrder(ctx context.Context, orderID string) error
	LastTradedPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}
