package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry kinds.
const (
	TxDeposit  = "deposit"
	TxWithdraw = "withdraw"
)

// UserTransaction is an append-only audit record of a capital movement.
// Rows are never updated or deleted.
type UserTransaction struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`
	// Nil for wallet-level deposits and withdrawals.
	StrategyID *uint64 `gorm:"index"`

	Amount        decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Type          string          `gorm:"type:varchar(10);not null"`
	UnitsAllotted decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (UserTransaction) TableName() string {
	return "user_transactions"
}
