package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradepool/internal/apperr"
	"tradepool/internal/models"
	"tradepool/internal/repository"
)

// Compile-time interface check.
var _ repository.Repository = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- orders -----------------------------------------------------------------

func (s *Store) InsertOrder(ctx context.Context, item *models.Order) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Order
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetOrderByBrokerID(ctx context.Context, brokerID string) (*models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	brokerID = strings.TrimSpace(brokerID)
	if brokerID == "" {
		return nil, nil
	}
	var item models.Order
	err := s.db.WithContext(ctx).First(&item, "broker_id = ?", brokerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOpenEntryOrders(ctx context.Context, strategyID uint64, ticker string) ([]models.Order, error) {
	if s == nil || s.db == nil || strategyID == 0 {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("strategy_id = ?", strategyID).
		Where("type = ?", models.OrderTypeEntry).
		Where("is_active = ?", true)
	if ticker = strings.TrimSpace(ticker); ticker != "" {
		query = query.Where("ticker = ?", ticker)
	}
	var items []models.Order
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOrdersByRefID(ctx context.Context, refID uint64) ([]models.Order, error) {
	if s == nil || s.db == nil || refID == 0 {
		return nil, nil
	}
	var items []models.Order
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("ref_id = ?", refID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUnprotectedEntries(ctx context.Context, limit int) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	missing := func(childType string) string {
		return "NOT EXISTS (SELECT 1 FROM orders AS c WHERE c.ref_id = orders.id AND c.type = '" + childType + "')"
	}
	var items []models.Order
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("type = ?", models.OrderTypeEntry).
		Where("is_active = ?", true).
		Where("is_filled = ?", true).
		Where("(stop_loss IS NOT NULL AND "+missing(models.OrderTypeSL)+
			") OR (take_profit IS NOT NULL AND "+missing(models.OrderTypeTP)+")").
		Order("id asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateOrder rewrites every mutable column of the row, guarded by the
// version the caller loaded. Zero affected rows means a concurrent writer
// got there first and the caller must reload.
func (s *Store) UpdateOrder(ctx context.Context, item *models.Order) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]any{
			"broker_id":     item.BrokerID,
			"quantity":      item.Quantity,
			"exit_quantity": item.ExitQuantity,
			"price":         item.Price,
			"capital_used":  item.CapitalUsed,
			"margin_used":   item.MarginUsed,
			"charges":       item.Charges,
			"is_filled":     item.IsFilled,
			"is_cancelled":  item.IsCancelled,
			"is_active":     item.IsActive,
			"dt":            item.DT,
			"version":       item.Version + 1,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrConflict, "order %d at version %d was updated concurrently", item.ID, item.Version)
	}
	item.Version++
	return nil
}

// --- strategies -------------------------------------------------------------

func (s *Store) CreateStrategy(ctx context.Context, item *models.Strategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return apperr.New(apperr.ErrValidation, "strategy name is required")
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Strategy
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetStrategyByName(ctx context.Context, name string) (*models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var item models.Strategy
	err := s.db.WithContext(ctx).First(&item, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Strategy
	if err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- holdings and transactions ----------------------------------------------

func (s *Store) GetHolding(ctx context.Context, userID, strategyID uint64) (*models.UserStrategyHolding, error) {
	if s == nil || s.db == nil || userID == 0 || strategyID == 0 {
		return nil, nil
	}
	var item models.UserStrategyHolding
	err := s.db.WithContext(ctx).
		First(&item, "user_id = ? AND strategy_id = ?", userID, strategyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListHoldingsByUser(ctx context.Context, userID uint64) ([]models.UserStrategyHolding, error) {
	if s == nil || s.db == nil || userID == 0 {
		return nil, nil
	}
	var items []models.UserStrategyHolding
	if err := s.db.WithContext(ctx).
		Model(&models.UserStrategyHolding{}).
		Where("user_id = ?", userID).
		Order("strategy_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUserTransactions(ctx context.Context, params repository.ListUserTransactionsParams) ([]models.UserTransaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.UserTransaction{})
	if params.UserID != nil && *params.UserID != 0 {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.StrategyID != nil && *params.StrategyID != 0 {
		query = query.Where("strategy_id = ?", *params.StrategyID)
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.UserTransaction
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- ledger, transaction-scoped ---------------------------------------------

func (s *Store) GetUserForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.User, error) {
	if tx == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetStrategyForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Strategy, error) {
	if tx == nil || id == 0 {
		return nil, nil
	}
	var item models.Strategy
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetHoldingForUpdateTx(ctx context.Context, tx *gorm.DB, userID, strategyID uint64) (*models.UserStrategyHolding, error) {
	if tx == nil || userID == 0 || strategyID == 0 {
		return nil, nil
	}
	var item models.UserStrategyHolding
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "user_id = ? AND strategy_id = ?", userID, strategyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateUserCapitalTx(ctx context.Context, tx *gorm.DB, item *models.User) error {
	if tx == nil || item == nil || item.ID == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"capital":           item.Capital,
			"capital_used":      item.CapitalUsed,
			"capital_remaining": item.CapitalRemaining,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (s *Store) UpdateStrategyCapitalTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	if tx == nil || item == nil || item.ID == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"units":             item.Units,
			"capital":           item.Capital,
			"capital_used":      item.CapitalUsed,
			"capital_remaining": item.CapitalRemaining,
		}).Error
}

func (s *Store) UpsertHoldingTx(ctx context.Context, tx *gorm.DB, item *models.UserStrategyHolding) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "strategy_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"units"}),
	}).Create(item).Error
}

func (s *Store) InsertUserTransactionTx(ctx context.Context, tx *gorm.DB, item *models.UserTransaction) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}
