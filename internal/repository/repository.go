package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tradepool/internal/models"
)

// Repository is the persistence surface shared by the execution engine,
// the capital ledger and the account service. Tx-suffixed methods run
// against the supplied transaction handle; the ledger wraps its four-row
// mutations in one InTx call so they commit or roll back together.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Orders.
	InsertOrder(ctx context.Context, item *models.Order) error
	GetOrderByID(ctx context.Context, id uint64) (*models.Order, error)
	GetOrderByBrokerID(ctx context.Context, brokerID string) (*models.Order, error)
	ListOpenEntryOrders(ctx context.Context, strategyID uint64, ticker string) ([]models.Order, error)
	ListOrdersByRefID(ctx context.Context, refID uint64) ([]models.Order, error)
	ListUnprotectedEntries(ctx context.Context, limit int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, item *models.Order) error

	// Strategies.
	CreateStrategy(ctx context.Context, item *models.Strategy) error
	GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error)
	GetStrategyByName(ctx context.Context, name string) (*models.Strategy, error)
	ListStrategies(ctx context.Context) ([]models.Strategy, error)

	// Users.
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Holdings and transactions.
	GetHolding(ctx context.Context, userID, strategyID uint64) (*models.UserStrategyHolding, error)
	ListHoldingsByUser(ctx context.Context, userID uint64) ([]models.UserStrategyHolding, error)
	ListUserTransactions(ctx context.Context, params ListUserTransactionsParams) ([]models.UserTransaction, error)

	// Ledger mutations, transaction-scoped. Row loads take FOR UPDATE
	// locks so concurrent invest/withdraw calls serialize per row.
	GetUserForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.User, error)
	GetStrategyForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Strategy, error)
	GetHoldingForUpdateTx(ctx context.Context, tx *gorm.DB, userID, strategyID uint64) (*models.UserStrategyHolding, error)
	UpdateUserCapitalTx(ctx context.Context, tx *gorm.DB, item *models.User) error
	UpdateStrategyCapitalTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error
	UpsertHoldingTx(ctx context.Context, tx *gorm.DB, item *models.UserStrategyHolding) error
	InsertUserTransactionTx(ctx context.Context, tx *gorm.DB, item *models.UserTransaction) error
}

type ListUserTransactionsParams struct {
	UserID     *uint64
	StrategyID *uint64
	Type       *string
	Since      *time.Time
	Limit      int
	Offset     int
}
