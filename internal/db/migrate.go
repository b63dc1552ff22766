package db

import (
	"tradepool/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.Strategy{},
		&models.UserStrategyHolding{},
		&models.UserTransaction{},
		&models.Order{},
	)
}
