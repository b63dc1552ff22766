package models

import "github.com/shopspring/decimal"

// UserStrategyHolding is the units a user holds in one strategy's pool.
// One row per (user, strategy); created on first investment and kept for
// its history even once the balance hits zero.
type UserStrategyHolding struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     uint64 `gorm:"not null;index:idx_user_strategy,unique"`
	StrategyID uint64 `gorm:"not null;index:idx_user_strategy,unique"`

	Units decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
}

func (UserStrategyHolding) TableName() string {
	return "user_strategies"
}
