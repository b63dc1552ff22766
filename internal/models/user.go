package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password;type:varchar(100);not null"`
	Email        string `gorm:"type:varchar(255)"`
	Name         string `gorm:"type:varchar(255)"`

	Capital          decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CapitalUsed      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CapitalRemaining decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	IsActive   bool `gorm:"not null;default:false"`
	IsVerified bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
