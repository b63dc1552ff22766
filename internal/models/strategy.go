package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy is a named pool of capital traded by one signal stream.
// CapitalRemaining is maintained by every ledger mutation, never derived.
type Strategy struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Description  string `gorm:"type:text"`
	RunTimeframe string `gorm:"column:run_tf;type:varchar(10)"`

	Units            decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Capital          decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CapitalUsed      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CapitalRemaining decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Leverage         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:1"`

	PnL           decimal.Decimal `gorm:"column:pnl;type:numeric(30,10);not null;default:0"`
	UnrealizedPnL decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,10);not null;default:0"`
	RealizedPnL   decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10);not null;default:0"`

	IsActive  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Strategy) TableName() string {
	return "strategies"
}
