package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tradepool/internal/apperr"
	"tradepool/internal/models"
	"tradepool/internal/repository"
)

type stubStore struct {
	repository.Repository

	users []*models.User
	txns  []*models.UserTransaction
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) CreateUser(_ context.Context, item *models.User) error {
	item.ID = uint64(len(s.users) + 1)
	s.users = append(s.users, item)
	return nil
}

func (s *stubStore) GetUserByID(_ context.Context, id uint64) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetUserForUpdateTx(ctx context.Context, _ *gorm.DB, id uint64) (*models.User, error) {
	return s.GetUserByID(ctx, id)
}

func (s *stubStore) UpdateUserCapitalTx(_ context.Context, _ *gorm.DB, item *models.User) error {
	for i, u := range s.users {
		if u.ID == item.ID {
			s.users[i] = item
		}
	}
	return nil
}

func (s *stubStore) InsertUserTransactionTx(_ context.Context, _ *gorm.DB, item *models.UserTransaction) error {
	item.ID = uint64(len(s.txns) + 1)
	s.txns = append(s.txns, item)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateUser_And_Login(t *testing.T) {
	store := &stubStore{}
	svc := &Service{Repo: store}

	user, err := svc.CreateUser(context.Background(), "alice", "s3cret", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 || !user.IsActive {
		t.Fatalf("user=%+v", user)
	}
	if user.PasswordHash == "s3cret" || user.PasswordHash == "" {
		t.Fatalf("password stored in the clear")
	}

	got, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login id=%d want %d", got.ID, user.ID)
	}

	if _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err=%v want validation", err)
	}
	if _, err := svc.Login(context.Background(), "bob", "s3cret"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err=%v want not-found", err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	store := &stubStore{}
	svc := &Service{Repo: store}

	if _, err := svc.CreateUser(context.Background(), "alice", "one", "", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := svc.CreateUser(context.Background(), "alice", "two", "", "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err=%v want validation", err)
	}
}

func TestAddFunds_ThenWithdraw(t *testing.T) {
	store := &stubStore{}
	svc := &Service{Repo: store}
	user, err := svc.CreateUser(context.Background(), "alice", "s3cret", "", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	txn, err := svc.AddFunds(context.Background(), user.ID, dec("5000"))
	if err != nil {
		t.Fatalf("AddFunds: %v", err)
	}
	if txn.Type != models.TxDeposit || txn.StrategyID != nil {
		t.Fatalf("txn=%+v", txn)
	}
	if !user.Capital.Equal(dec("5000")) || !user.CapitalRemaining.Equal(dec("5000")) {
		t.Fatalf("user=%+v", user)
	}

	txn, err = svc.WithdrawFunds(context.Background(), user.ID, dec("2000"))
	if err != nil {
		t.Fatalf("WithdrawFunds: %v", err)
	}
	if txn.Type != models.TxWithdraw {
		t.Fatalf("txn type=%s want withdraw", txn.Type)
	}
	if !user.Capital.Equal(dec("3000")) || !user.CapitalRemaining.Equal(dec("3000")) {
		t.Fatalf("user=%+v", user)
	}
	if len(store.txns) != 2 {
		t.Fatalf("txns=%d want 2", len(store.txns))
	}
}

func TestWithdrawFunds_OnlyUndeployedCapital(t *testing.T) {
	store := &stubStore{}
	svc := &Service{Repo: store}
	user, err := svc.CreateUser(context.Background(), "alice", "s3cret", "", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.AddFunds(context.Background(), user.ID, dec("5000")); err != nil {
		t.Fatalf("AddFunds: %v", err)
	}
	// Simulate capital parked in a strategy.
	user.CapitalRemaining = dec("1000")
	user.CapitalUsed = dec("4000")

	_, err = svc.WithdrawFunds(context.Background(), user.ID, dec("2000"))
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("err=%v want insufficient-funds", err)
	}
}

func TestCreateUser_RequiresCredentials(t *testing.T) {
	svc := &Service{Repo: &stubStore{}}
	if _, err := svc.CreateUser(context.Background(), "", "pw", "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err=%v want validation", err)
	}
	if _, err := svc.CreateUser(context.Background(), "alice", "", "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err=%v want validation", err)
	}
}
