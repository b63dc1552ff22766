package ledger

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

	user     *models.User
	strategy *models.Strategy
	holding  *models.UserStrategyHolding
	txns     []*models.UserTransaction
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) GetUserForUpdateTx(_ context.Context, _ *gorm.DB, id uint64) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubStore) GetStrategyForUpdateTx(_ context.Context, _ *gorm.DB, id uint64) (*models.Strategy, error) {
	if s.strategy != nil && s.strategy.ID == id {
		return s.strategy, nil
	}
	return nil, nil
}

func (s *stubStore) GetHoldingForUpdateTx(_ context.Context, _ *gorm.DB, userID, strategyID uint64) (*models.UserStrategyHolding, error) {
	if s.holding != nil && s.holding.UserID == userID && s.holding.StrategyID == strategyID {
		return s.holding, nil
	}
	return nil, nil
}

func (s *stubStore) UpdateUserCapitalTx(_ context.Context, _ *gorm.DB, item *models.User) error {
	s.user = item
	return nil
}

func (s *stubStore) UpdateStrategyCapitalTx(_ context.Context, _ *gorm.DB, item *models.Strategy) error {
	s.strategy = item
	return nil
}

func (s *stubStore) UpsertHoldingTx(_ context.Context, _ *gorm.DB, item *models.UserStrategyHolding) error {
	s.holding = item
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

func newStore() *stubStore {
	return &stubStore{
		user: &models.User{
			ID:               1,
			Username:         "alice",
			Capital:          dec("50000"),
			CapitalRemaining: dec("50000"),
		},
		strategy: &models.Strategy{
			ID:               7,
			Name:             "momentum",
			Units:            dec("1000"),
			Capital:          dec("10000"),
			CapitalRemaining: dec("10000"),
		},
	}
}

func TestUnitsForAmount_RoundsRateFirst(t *testing.T) {
	// 1000 units over 10000 capital is 0.10 units per currency unit.
	units, err := UnitsForAmount(dec("2500"), dec("1000"), dec("10000"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !units.Equal(dec("250")) {
		t.Fatalf("units=%s want 250", units)
	}

	// 3/7000 truncates to 0.00 before the multiply, so the allotment
	// collapses to zero rather than a long fraction.
	units, err = UnitsForAmount(dec("100"), dec("3"), dec("7000"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !units.IsZero() {
		t.Fatalf("units=%s want 0", units)
	}
}

func TestAmountForUnits_InvertsAllotment(t *testing.T) {
	// 250 units at 0.10 units per currency unit redeem 2500.
	amount, err := AmountForUnits(dec("250"), dec("1000"), dec("10000"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !amount.Equal(dec("2500")) {
		t.Fatalf("amount=%s want 2500", amount)
	}

	_, err = AmountForUnits(dec("10"), decimal.Zero, dec("10000"))
	if !errors.Is(err, apperr.ErrInsufficientUnits) {
		t.Fatalf("err=%v want insufficient-units", err)
	}
}

func TestUnitsForAmount_ZeroUnits(t *testing.T) {
	_, err := UnitsForAmount(dec("100"), decimal.Zero, dec("10000"))
	if !errors.Is(err, apperr.ErrInsufficientUnits) {
		t.Fatalf("err=%v want insufficient-units", err)
	}
}

func TestInvest_MovesCapitalAndAllotsUnits(t *testing.T) {
	store := newStore()
	svc := &Service{Repo: store}

	txn, err := svc.Invest(context.Background(), 1, 7, dec("1000"))
	if err != nil {
		t.Fatalf("Invest: %v", err)
	}
	if txn.Type != models.TxDeposit || !txn.Amount.Equal(dec("1000")) {
		t.Fatalf("txn=%+v", txn)
	}
	if !txn.UnitsAllotted.Equal(dec("100")) {
		t.Fatalf("units=%s want 100", txn.UnitsAllotted)
	}
	if txn.StrategyID == nil || *txn.StrategyID != 7 {
		t.Fatalf("txn strategy=%v want 7", txn.StrategyID)
	}

	if !store.user.Capital.Equal(dec("49000")) ||
		!store.user.CapitalUsed.Equal(dec("1000")) ||
		!store.user.CapitalRemaining.Equal(dec("49000")) {
		t.Fatalf("user=%+v", store.user)
	}
	if !store.strategy.Units.Equal(dec("1100")) ||
		!store.strategy.Capital.Equal(dec("11000")) ||
		!store.strategy.CapitalRemaining.Equal(dec("11000")) {
		t.Fatalf("strategy=%+v", store.strategy)
	}
	if store.holding == nil || !store.holding.Units.Equal(dec("100")) {
		t.Fatalf("holding=%+v", store.holding)
	}
}

func TestInvest_ThenWithdraw_RestoresBalances(t *testing.T) {
	store := newStore()
	svc := &Service{Repo: store}

	if _, err := svc.Invest(context.Background(), 1, 7, dec("1000")); err != nil {
		t.Fatalf("Invest: %v", err)
	}
	txn, err := svc.Withdraw(context.Background(), 1, 7, dec("1000"))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if txn.Type != models.TxWithdraw {
		t.Fatalf("txn type=%s want withdraw", txn.Type)
	}

	if !store.user.Capital.Equal(dec("50000")) ||
		!store.user.CapitalUsed.IsZero() ||
		!store.user.CapitalRemaining.Equal(dec("50000")) {
		t.Fatalf("user=%+v", store.user)
	}
	if !store.strategy.Units.Equal(dec("1000")) ||
		!store.strategy.Capital.Equal(dec("10000")) {
		t.Fatalf("strategy=%+v", store.strategy)
	}
	if !store.holding.Units.IsZero() {
		t.Fatalf("holding units=%s want 0", store.holding.Units)
	}
	if len(store.txns) != 2 {
		t.Fatalf("txns=%d want 2", len(store.txns))
	}
}

func TestInvest_ConservesTotals(t *testing.T) {
	store := newStore()
	svc := &Service{Repo: store}

	walletBefore := store.user.Capital.Add(store.user.CapitalUsed)
	if _, err := svc.Invest(context.Background(), 1, 7, dec("333.33")); err != nil {
		t.Fatalf("Invest: %v", err)
	}

	walletAfter := store.user.Capital.Add(store.user.CapitalUsed)
	if !walletAfter.Equal(walletBefore) {
		t.Fatalf("wallet total drifted: %s -> %s", walletBefore, walletAfter)
	}
	if !store.user.Capital.Equal(store.user.CapitalRemaining) {
		t.Fatalf("user capital=%s remaining=%s", store.user.Capital, store.user.CapitalRemaining)
	}
}

func TestInvest_InsufficientFunds(t *testing.T) {
	store := newStore()
	store.user.Capital = dec("100")
	svc := &Service{Repo: store}

	_, err := svc.Invest(context.Background(), 1, 7, dec("1000"))
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("err=%v want insufficient-funds", err)
	}
	if len(store.txns) != 0 {
		t.Fatalf("txns=%d want 0", len(store.txns))
	}
}

func TestInvest_BrandNewStrategyWithoutUnits(t *testing.T) {
	store := newStore()
	store.strategy.Units = decimal.Zero
	store.strategy.Capital = decimal.Zero
	store.strategy.CapitalRemaining = decimal.Zero
	svc := &Service{Repo: store}

	_, err := svc.Invest(context.Background(), 1, 7, dec("100"))
	if !errors.Is(err, apperr.ErrInsufficientUnits) {
		t.Fatalf("err=%v want insufficient-units", err)
	}
}

func TestInvest_RejectsNonPositiveAmount(t *testing.T) {
	svc := &Service{Repo: newStore()}
	for _, amount := range []string{"0", "-5"} {
		if _, err := svc.Invest(context.Background(), 1, 7, dec(amount)); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("amount=%s err=%v want validation", amount, err)
		}
	}
}

func TestWithdraw_NoHolding(t *testing.T) {
	svc := &Service{Repo: newStore()}
	_, err := svc.Withdraw(context.Background(), 1, 7, dec("100"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err=%v want not-found", err)
	}
}

func TestWithdraw_MoreThanHolding(t *testing.T) {
	store := newStore()
	svc := &Service{Repo: store}
	if _, err := svc.Invest(context.Background(), 1, 7, dec("100")); err != nil {
		t.Fatalf("Invest: %v", err)
	}

	holdingBefore := store.holding.Units
	strategyBefore := store.strategy.Units

	_, err := svc.Withdraw(context.Background(), 1, 7, dec("5000"))
	if !errors.Is(err, apperr.ErrInsufficientUnits) {
		t.Fatalf("err=%v want insufficient-units", err)
	}
	if !store.holding.Units.Equal(holdingBefore) || !store.strategy.Units.Equal(strategyBefore) {
		t.Fatalf("failed withdrawal mutated state")
	}
	if len(store.txns) != 1 {
		t.Fatalf("txns=%d want 1 (the invest only)", len(store.txns))
	}
}

func TestWithdraw_UnknownStrategy(t *testing.T) {
	svc := &Service{Repo: newStore()}
	_, err := svc.Withdraw(context.Background(), 1, 99, dec("100"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err=%v want not-found", err)
	}
}
