// Package ledger moves pooled capital between users and strategies,
// minting and burning proportional units. Every operation is one
// all-or-nothing store transaction over the four affected rows.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradepool/internal/apperr"
	"tradepool/internal/models"
	"tradepool/internal/repository"
)

type Service struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// UnitsForAmount converts a capital amount into strategy units. The
// rounding order is load-bearing for reconcilability: the per-unit rate
// is rounded to two decimals first, then the product is rounded again.
func UnitsForAmount(amount, strategyUnits, strategyCapital decimal.Decimal) (decimal.Decimal, error) {
	if strategyUnits.IsZero() {
		return decimal.Zero, apperr.New(apperr.ErrInsufficientUnits, "strategy has no units issued")
	}
	unitsPerAmount := strategyUnits.Div(strategyCapital).Round(2)
	return amount.Mul(unitsPerAmount).Round(2), nil
}

// AmountForUnits is the inverse conversion, with the same rounding order.
func AmountForUnits(units, strategyUnits, strategyCapital decimal.Decimal) (decimal.Decimal, error) {
	if strategyUnits.IsZero() {
		return decimal.Zero, apperr.New(apperr.ErrInsufficientUnits, "strategy has no units issued")
	}
	return units.Mul(strategyCapital.Div(strategyUnits).Round(2)), nil
}

// Invest moves amount from the user's wallet into the strategy's pool and
// allots units against it. The user row, strategy row, holding row and
// audit row commit together or not at all.
func (s *Service) Invest(ctx context.Context, userID, strategyID uint64, amount decimal.Decimal) (*models.UserTransaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.ErrValidation, "amount must be greater than 0, got %s", amount)
	}

	var txn *models.UserTransaction
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		user, err := s.Repo.GetUserForUpdateTx(ctx, tx, userID)
		if err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "load user %d", userID)
		}
		if user == nil {
			return apperr.New(apperr.ErrNotFound, "user %d", userID)
		}
		if user.Capital.LessThan(amount) {
			return apperr.New(apperr.ErrInsufficientFunds,
				"user %d has %s, needs %s", userID, user.Capital, amount)
		}

		strategy, err := s.Repo.GetStrategyForUpdateTx(ctx, tx, strategyID)
		if err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "load strategy %d", strategyID)
		}
		if strategy == nil {
			return apperr.New(apperr.ErrNotFound, "strategy %d", strategyID)
		}

		units, err := UnitsForAmount(amount, strategy.Units, strategy.Capital)
		if err != nil {
			return err
		}

		txn = &models.UserTransaction{
			UserID:        userID,
			StrategyID:    &strategyID,
			Amount:        amount,
			Type:          models.TxDeposit,
			UnitsAllotted: units,
		}
		if err := s.Repo.InsertUserTransactionTx(ctx, tx, txn); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "record deposit")
		}

		user.Capital = user.Capital.Sub(amount)
		user.CapitalUsed = user.CapitalUsed.Add(amount)
		user.CapitalRemaining = user.CapitalRemaining.Sub(amount)
		if err := s.Repo.UpdateUserCapitalTx(ctx, tx, user); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "debit user %d", userID)
		}

		strategy.Units = strategy.Units.Add(units)
		strategy.Capital = strategy.Capital.Add(amount)
		strategy.CapitalRemaining = strategy.CapitalRemaining.Add(amount)
		if err := s.Repo.UpdateStrategyCapitalTx(ctx, tx, strategy); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "credit strategy %d", strategyID)
		}

		holding, err := s.Repo.GetHoldingForUpdateTx(ctx, tx, userID, strategyID)
		if err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "load holding")
		}
		if holding == nil {
			holding = &models.UserStrategyHolding{
				UserID:     userID,
				StrategyID: strategyID,
				Units:      units,
			}
		} else {
			holding.Units = holding.Units.Add(units)
		}
		if err := s.Repo.UpsertHoldingTx(ctx, tx, holding); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "upsert holding")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("investment recorded",
			zap.Uint64("user_id", userID),
			zap.Uint64("strategy_id", strategyID),
			zap.String("amount", amount.String()),
			zap.String("units", txn.UnitsAllotted.String()))
	}
	return txn, nil
}

// Withdraw is the reverse movement: it burns the holding's units and
// returns capital to the user's wallet, rejecting anything that would
// take the holding or the strategy below zero units.
func (s *Service) Withdraw(ctx context.Context, userID, strategyID uint64, amount decimal.Decimal) (*models.UserTransaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.ErrValidation, "amount must be greater than 0, got %s", amount)
	}

	var txn *models.UserTransaction
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		user, err := s.Repo.GetUserForUpdateTx(ctx, tx, userID)
		if err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "load user %d", userID)
		}
		if user == nil {
			return apperr.New(apperr.ErrNotFound, "user %d", userID)
		}

		strategy, err := s.Repo.GetStrategyForUpdateTx(ctx, tx, strategyID)
		if err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "load strategy %d", strategyID)
		}
		if strategy == nil {
			return apperr.New(apperr.ErrNotFound, "strategy %d", strategyID)
		}

		holding, err := s.Repo.GetHoldingForUpdateTx(ctx, tx, userID, strategyID)
		if err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "load holding")
		}
		if holding == nil {
			return apperr.New(apperr.ErrNotFound, "holding for user %d in strategy %d", userID, strategyID)
		}
		if !holding.Units.IsPositive() {
			return apperr.New(apperr.ErrInsufficientUnits, "no units available to withdraw")
		}

		units, err := UnitsForAmount(amount, strategy.Units, strategy.Capital)
		if err != nil {
			return err
		}
		if units.GreaterThan(holding.Units) {
			return apperr.New(apperr.ErrInsufficientUnits,
				"withdrawal needs %s units, holding has %s", units, holding.Units)
		}
		if strategy.Units.Sub(units).IsNegative() {
			return apperr.New(apperr.ErrInsufficientUnits,
				"withdrawal needs %s units, strategy has %s", units, strategy.Units)
		}

		txn = &models.UserTransaction{
			UserID:        userID,
			StrategyID:    &strategyID,
			Amount:        amount,
			Type:          models.TxWithdraw,
			UnitsAllotted: units,
		}
		if err := s.Repo.InsertUserTransactionTx(ctx, tx, txn); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "record withdrawal")
		}

		holding.Units = holding.Units.Sub(units)
		if err := s.Repo.UpsertHoldingTx(ctx, tx, holding); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "debit holding")
		}

		user.Capital = user.Capital.Add(amount)
		user.CapitalUsed = user.CapitalUsed.Sub(amount)
		user.CapitalRemaining = user.CapitalRemaining.Add(amount)
		if err := s.Repo.UpdateUserCapitalTx(ctx, tx, user); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "credit user %d", userID)
		}

		strategy.Units = strategy.Units.Sub(units)
		strategy.Capital = strategy.Capital.Sub(amount)
		strategy.CapitalRemaining = strategy.CapitalRemaining.Sub(amount)
		if err := s.Repo.UpdateStrategyCapitalTx(ctx, tx, strategy); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "debit strategy %d", strategyID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("withdrawal recorded",
			zap.Uint64("user_id", userID),
			zap.Uint64("strategy_id", strategyID),
			zap.String("amount", amount.String()),
			zap.String("units", txn.UnitsAllotted.String()))
	}
	return txn, nil
}
