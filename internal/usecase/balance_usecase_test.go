package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
	"github.com/iho/hostledger/internal/usecase/mocks"
	"github.com/shopspring/decimal"
)

func seedLeg(repo *mocks.MockEntryRepository, id, accountID string, amount int64, at time.Time) *domain.LedgerEntry {
	dir := domain.Credit
	if amount < 0 {
		dir = domain.Debit
	}

	leg := &domain.LedgerEntry{
		ID:                      id,
		GroupID:                 "group-" + id,
		AccountID:               accountID,
		HostAccountID:           "host-1",
		Direction:               dir,
		Kind:                    domain.KindContribution,
		AccountCurrency:         "USD",
		HostCurrency:            "USD",
		AmountInAccountCurrency: decimal.NewFromInt(amount),
		AmountInHostCurrency:    decimal.NewFromInt(amount),
		HostCurrencyFxRate:      decimal.NewFromInt(1),
		CreatedAt:               at,
	}
	repo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{leg})
	return leg
}

func TestBalanceUseCase_CurrentBalance(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("new account resolves to zero", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, nil, usecase.BalanceConfig{})

		balance, err := uc.CurrentBalance(context.Background(), "acc-empty", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.Available.IsZero() {
			t.Errorf("expected zero balance, got %s", balance.Available)
		}
		if balance.Source != domain.BalanceFromFullScan {
			t.Errorf("expected full scan source, got %s", balance.Source)
		}
	})

	t.Run("no checkpoint falls back to full scan", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		seedLeg(entryRepo, "e1", "acc-1", 300, base)
		seedLeg(entryRepo, "e2", "acc-1", -100, base.Add(time.Minute))

		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, nil, usecase.BalanceConfig{})

		balance, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.Available.Equal(decimal.NewFromInt(200)) {
			t.Errorf("expected 200, got %s", balance.Available)
		}
		if balance.Source != domain.BalanceFromFullScan {
			t.Errorf("expected full scan source, got %s", balance.Source)
		}
	})

	t.Run("checkpoint plus delta", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		folded := seedLeg(entryRepo, "e1", "acc-1", 500, base)
		seedLeg(entryRepo, "e2", "acc-1", 70, base.Add(time.Hour))

		cp := &domain.BalanceCheckpoint{
			AccountID:    "acc-1",
			HostCurrency: "USD",
			Rank:         domain.RankOf(folded, usecase.DefaultTimeBucket),
			Balance:      decimal.NewFromInt(500),
			AsOf:         base,
		}
		if err := checkpointRepo.Replace(context.Background(), cp, domain.ZeroRank()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		uc := usecase.NewBalanceUseCase(entryRepo, checkpointRepo, nil, nil, usecase.BalanceConfig{})

		balance, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.Available.Equal(decimal.NewFromInt(570)) {
			t.Errorf("expected 570, got %s", balance.Available)
		}
		if balance.Source != domain.BalanceFromCheckpoint {
			t.Errorf("expected checkpoint source, got %s", balance.Source)
		}
	})

	t.Run("checkpoint path agrees with full scan", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		amounts := []int64{500, -120, 35, 1000, -275}
		for i, amount := range amounts {
			seedLeg(entryRepo, string(rune('a'+i)), "acc-1", amount, base.Add(time.Duration(i)*time.Minute))
		}

		cpUC := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})
		if _, err := cpUC.Advance(context.Background(), "acc-1", "USD"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		uc := usecase.NewBalanceUseCase(entryRepo, checkpointRepo, nil, nil, usecase.BalanceConfig{})

		incremental, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		exact, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{Fresh: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !incremental.Available.Equal(exact.Available) {
			t.Errorf("incremental %s != exact %s", incremental.Available, exact.Available)
		}
		if incremental.Source != domain.BalanceFromCheckpoint {
			t.Errorf("expected checkpoint source, got %s", incremental.Source)
		}
		if exact.Source != domain.BalanceFromFullScan {
			t.Errorf("expected full scan source, got %s", exact.Source)
		}
	})

	t.Run("disputed legs reported separately", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		seedLeg(entryRepo, "e1", "acc-1", 300, base)
		disputed := seedLeg(entryRepo, "e2", "acc-1", 100, base.Add(time.Minute))
		disputed.IsDisputed = true
		entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{disputed})

		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, nil, usecase.BalanceConfig{})

		balance, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.Available.Equal(decimal.NewFromInt(300)) {
			t.Errorf("expected available 300, got %s", balance.Available)
		}
		if !balance.Disputed.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected disputed 100, got %s", balance.Disputed)
		}
	})

	t.Run("disputed reversal leg counts as available", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		disputed := seedLeg(entryRepo, "e1", "acc-1", 100, base)
		disputed.IsDisputed = true
		entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{disputed})

		// The reversal of a disputed leg keeps the disputed flag but
		// closes the dispute; it must not stay at risk.
		originalID := disputed.ID
		resolution := seedLeg(entryRepo, "e2", "acc-1", -100, base.Add(time.Minute))
		resolution.IsDisputed = true
		resolution.ReversalOfID = &originalID
		entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{resolution})

		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, nil, usecase.BalanceConfig{})

		balance, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.Available.Equal(decimal.NewFromInt(-100)) {
			t.Errorf("expected available -100, got %s", balance.Available)
		}
		if !balance.Disputed.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected disputed 100, got %s", balance.Disputed)
		}
	})

	t.Run("mixed host currencies served from scan of the current one", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		old := seedLeg(entryRepo, "e1", "acc-1", 300, base)
		old.HostCurrency = "EUR"
		entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{old})
		seedLeg(entryRepo, "e2", "acc-1", 100, base.Add(time.Hour))

		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, nil, usecase.BalanceConfig{})

		balance, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if balance.Currency != "USD" {
			t.Errorf("expected most recent currency USD, got %s", balance.Currency)
		}
		if !balance.Available.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected 100, got %s", balance.Available)
		}
		if balance.Source != domain.BalanceFromFullScan {
			t.Errorf("expected full scan source, got %s", balance.Source)
		}
	})

	t.Run("scan budget exceeded surfaces unavailability", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		seedLeg(entryRepo, "e1", "acc-1", 100, base)
		seedLeg(entryRepo, "e2", "acc-1", 100, base.Add(time.Minute))
		seedLeg(entryRepo, "e3", "acc-1", 100, base.Add(2*time.Minute))

		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, nil, usecase.BalanceConfig{FullScanMaxLegs: 2})

		_, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})

		var unavailable *domain.BalanceUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("expected BalanceUnavailableError, got %v", err)
		}
		if unavailable.AccountID != "acc-1" {
			t.Errorf("expected acc-1, got %s", unavailable.AccountID)
		}
	})

	t.Run("cache hit skips resolution", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		cache := mocks.NewMockCache()
		seedLeg(entryRepo, "e1", "acc-1", 300, base)

		uc := usecase.NewBalanceUseCase(entryRepo, mocks.NewMockCheckpointRepository(), cache, nil, usecase.BalanceConfig{})

		first, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// New activity not yet visible through the cache.
		seedLeg(entryRepo, "e2", "acc-1", 100, base.Add(time.Minute))

		second, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !second.Available.Equal(first.Available) {
			t.Errorf("expected cached %s, got %s", first.Available, second.Available)
		}

		fresh, err := uc.CurrentBalance(context.Background(), "acc-1", usecase.BalanceOptions{Fresh: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !fresh.Available.Equal(decimal.NewFromInt(400)) {
			t.Errorf("expected fresh 400, got %s", fresh.Available)
		}
	})
}
