package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Broker = (*Simulator)(nil)

// Simulator implements Broker in memory for paper trading and tests.
// Market orders fill immediately at the configured last traded price;
// everything else rests until Fill is called.
type Simulator struct {
	mu     sync.Mutex
	seq    int
	prices map[string]decimal.Decimal
	orders map[string]*OrderDetail

	// Error injection for failure-path tests.
	PlaceErr  error
	GetErr    error
	CancelErr error
}

func NewSimulator() *Simulator {
	return &Simulator{
		prices: make(map[string]decimal.Decimal),
		orders: make(map[string]*OrderDetail),
	}
}

func (b *Simulator) Name() string {
	return "simulator"
}

// SetPrice sets the last traded price returned for ticker.
func (b *Simulator) SetPrice(ticker string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[ticker] = price
}

func (b *Simulator) PlaceOrder(_ context.Context, req OrderRequest) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PlaceErr != nil {
		return nil, b.PlaceErr
	}
	b.seq++
	id := fmt.Sprintf("SIM-%d", b.seq)
	detail := &OrderDetail{
		OrderID:        id,
		Quantity:       req.Quantity,
		Status:         "open",
		OrderTimestamp: time.Now().UTC(),
	}
	if req.OrderType == "MARKET" {
		detail.FilledQuantity = req.Quantity
		detail.AveragePrice = b.prices[req.Ticker]
		detail.Status = "complete"
	}
	b.orders[id] = detail
	return []string{id}, nil
}

func (b *Simulator) PlaceTriggerOrder(_ context.Context, req TriggerOrderRequest) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PlaceErr != nil {
		return nil, b.PlaceErr
	}
	b.seq++
	id := fmt.Sprintf("SIM-GTT-%d", b.seq)
	b.orders[id] = &OrderDetail{
		OrderID:        id,
		Quantity:       req.Quantity,
		Status:         "open",
		OrderTimestamp: time.Now().UTC(),
	}
	return []string{id}, nil
}

func (b *Simulator) GetOrder(_ context.Context, orderID string) (*OrderDetail, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.GetErr != nil {
		return nil, b.GetErr
	}
	detail, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("simulator: unknown order %s", orderID)
	}
	copied := *detail
	return &copied, nil
}

func (b *Simulator) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CancelErr != nil {
		return b.CancelErr
	}
	if detail, ok := b.orders[orderID]; ok {
		detail.Status = "cancelled"
	}
	return nil
}

func (b *Simulator) CancelTriggerOrder(ctx context.Context, orderID string) error {
	return b.CancelOrder(ctx, orderID)
}

func (b *Simulator) LastTradedPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	price, ok := b.prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("simulator: no price for %s", ticker)
	}
	return price, nil
}

// Fill marks a resting order as executed at the given quantity and price.
func (b *Simulator) Fill(orderID string, quantity, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if detail, ok := b.orders[orderID]; ok {
		detail.FilledQuantity = quantity
		detail.AveragePrice = price
		detail.Status = "complete"
	}
}

// Status reports the simulator's view of an order, for assertions.
func (b *Simulator) Status(orderID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if detail, ok := b.orders[orderID]; ok {
		return detail.Status
	}
	return ""
}
