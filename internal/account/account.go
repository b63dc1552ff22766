// Package account owns user registration, login and wallet funding.
package account

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tradepool/internal/apperr"
	"tradepool/internal/models"
	"tradepool/internal/repository"
)

type Service struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// CreateUser registers a new user with a bcrypt password hash. The
// username must not already be taken.
func (s *Service) CreateUser(ctx context.Context, username, password, email, name string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperr.New(apperr.ErrValidation, "username and password are required")
	}
	existing, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Because(apperr.ErrPersistence, err, "look up username %q", username)
	}
	if existing != nil {
		return nil, apperr.New(apperr.ErrValidation, "username %q already exists", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Because(apperr.ErrValidation, err, "hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		Name:         name,
		IsActive:     true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, apperr.Because(apperr.ErrPersistence, err, "create user %q", username)
	}
	if s.Logger != nil {
		s.Logger.Info("user created", zap.Uint64("user_id", user.ID), zap.String("username", username))
	}
	return user, nil
}

// Login verifies the password against the stored hash and returns the
// user on success.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Because(apperr.ErrPersistence, err, "look up username %q", username)
	}
	if user == nil {
		return nil, apperr.New(apperr.ErrNotFound, "user %q", username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.ErrValidation, "invalid credentials for %q", username)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, apperr.Because(apperr.ErrPersistence, err, "load user %d", id)
	}
	if user == nil {
		return nil, apperr.New(apperr.ErrNotFound, "user %d", id)
	}
	return user, nil
}

// AddFunds credits the user's wallet. Both the wallet balance and the
// undeployed balance grow by the same amount.
func (s *Service) AddFunds(ctx context.Context, userID uint64, amount decimal.Decimal) (*models.UserTransaction, error) {
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

		txn = &models.UserTransaction{
			UserID: userID,
			Amount: amount,
			Type:   models.TxDeposit,
		}
		if err := s.Repo.InsertUserTransactionTx(ctx, tx, txn); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "record deposit")
		}

		user.Capital = user.Capital.Add(amount)
		user.CapitalRemaining = user.CapitalRemaining.Add(amount)
		if err := s.Repo.UpdateUserCapitalTx(ctx, tx, user); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "credit user %d", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("funds added",
			zap.Uint64("user_id", userID), zap.String("amount", amount.String()))
	}
	return txn, nil
}

// WithdrawFunds debits the user's wallet. Only the undeployed balance is
// withdrawable; capital invested in strategies must be redeemed first.
func (s *Service) WithdrawFunds(ctx context.Context, userID uint64, amount decimal.Decimal) (*models.UserTransaction, error) {
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
		if user.CapitalRemaining.LessThan(amount) {
			return apperr.New(apperr.ErrInsufficientFunds,
				"user %d has %s available, needs %s", userID, user.CapitalRemaining, amount)
		}

		txn = &models.UserTransaction{
			UserID: userID,
			Amount: amount,
			Type:   models.TxWithdraw,
		}
		if err := s.Repo.InsertUserTransactionTx(ctx, tx, txn); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "record withdrawal")
		}

		user.Capital = user.Capital.Sub(amount)
		user.CapitalRemaining = user.CapitalRemaining.Sub(amount)
		if err := s.Repo.UpdateUserCapitalTx(ctx, tx, user); err != nil {
			return apperr.Because(apperr.ErrPersistence, err, "debit user %d", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("funds withdrawn",
			zap.Uint64("user_id", userID), zap.String("amount", amount.String()))
	}
	return txn, nil
}
