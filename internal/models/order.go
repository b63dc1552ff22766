package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Order roles within a position's lifecycle.
const (
	OrderTypeEntry = "ENTRY"
	OrderTypeExit  = "EXIT"
	OrderTypeSL    = "SL"
	OrderTypeTP    = "TP"
)

// Brokerage order kinds.
const (
	ExecMarket    = "MARKET"
	ExecLimit     = "LIMIT"
	ExecStop      = "SL"
	ExecStopMkt   = "SL-M"
	ExecTriggered = "GTT"
)

// Order is one brokerage order, or a synthetic closing record. SL/TP
// children and EXIT records point back at their ENTRY via RefID.
type Order struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	BrokerID   string  `gorm:"type:varchar(100);uniqueIndex"`
	StrategyID uint64  `gorm:"not null;index"`
	RefID      *uint64 `gorm:"index"`

	Ticker    string `gorm:"type:varchar(50);not null;index"`
	Action    string `gorm:"type:varchar(10);not null"`
	Type      string `gorm:"type:varchar(10);not null;index"`
	OrderType string `gorm:"type:varchar(10);not null"`

	Quantity     decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	ExitQuantity decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Price        decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	CapitalUsed  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	MarginUsed   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Charges      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	// Intended protective distances, kept on the ENTRY row so that child
	// placement can be retried after a crash (see execution.SweepUnprotected).
	StopLoss   *decimal.Decimal `gorm:"type:numeric(20,10)"`
	TakeProfit *decimal.Decimal `gorm:"type:numeric(20,10)"`

	IsFilled    bool `gorm:"not null;default:false"`
	IsCancelled bool `gorm:"not null;default:false"`
	IsActive    bool `gorm:"not null;default:true;index"`

	// Version guards concurrent rewrites: updates match on it and bump it,
	// zero rows affected means somebody else won.
	Version uint64 `gorm:"not null;default:0"`

	DT        *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// Closed reports whether the entry has been fully exited.
func (o *Order) Closed() bool {
	return !o.IsActive && o.ExitQuantity.Equal(o.Quantity)
}
