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

func TestCheckpointUseCase_Advance(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("folds stable legs into a checkpoint", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)
		seedLeg(entryRepo, "e2", "acc-1", -200, base.Add(time.Minute))

		uc := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		cp, err := uc.Advance(context.Background(), "acc-1", "USD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cp.Balance.Equal(decimal.NewFromInt(300)) {
			t.Errorf("expected 300, got %s", cp.Balance)
		}
		if cp.Rank.IsZero() {
			t.Error("expected checkpoint rank to advance past zero")
		}
	})

	t.Run("legs in the live bucket are left for the next run", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)
		live := seedLeg(entryRepo, "e2", "acc-1", 999, time.Now().UTC())

		uc := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		cp, err := uc.Advance(context.Background(), "acc-1", "USD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cp.Balance.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected live leg excluded, got %s", cp.Balance)
		}

		// The live leg is still reachable through the delta read.
		delta, err := entryRepo.SumAfterRank(context.Background(), "acc-1", "USD", cp.Rank)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !delta.Equal(live.NetAmount()) {
			t.Errorf("expected delta %s, got %s", live.NetAmount(), delta)
		}
	})

	t.Run("advance is idempotent when nothing new is stable", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)

		uc := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		first, err := uc.Advance(context.Background(), "acc-1", "USD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := uc.Advance(context.Background(), "acc-1", "USD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !first.Balance.Equal(second.Balance) {
			t.Errorf("expected stable balance, got %s then %s", first.Balance, second.Balance)
		}
		if first.Rank.Compare(second.Rank) != 0 {
			t.Error("expected rank to stand still without new stable legs")
		}
	})

	t.Run("no legs at all yields no checkpoint", func(t *testing.T) {
		uc := usecase.NewCheckpointUseCase(mocks.NewMockEntryRepository(), mocks.NewMockCheckpointRepository(), nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		_, err := uc.Advance(context.Background(), "acc-empty", "USD")
		if !errors.Is(err, domain.ErrCheckpointNotFound) {
			t.Errorf("expected ErrCheckpointNotFound, got %v", err)
		}
	})

	t.Run("voided legs are not folded", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)
		voided := seedLeg(entryRepo, "e2", "acc-1", 999, base.Add(time.Minute))
		now := time.Now().UTC()
		voided.DeletedAt = &now
		entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{voided})

		uc := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		cp, err := uc.Advance(context.Background(), "acc-1", "USD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cp.Balance.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected voided leg excluded, got %s", cp.Balance)
		}
	})

	t.Run("rank conflict retried once", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)

		conflicts := 0
		checkpointRepo.ReplaceFunc = func(ctx context.Context, cp *domain.BalanceCheckpoint, expected domain.Rank) error {
			if conflicts == 0 {
				conflicts++
				return &domain.RefreshConflictError{AccountID: cp.AccountID, HostCurrency: cp.HostCurrency}
			}
			return nil
		}

		uc := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		if _, err := uc.Advance(context.Background(), "acc-1", "USD"); err != nil {
			t.Errorf("expected retry to succeed, got %v", err)
		}
	})

	t.Run("persistent conflict surfaced", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		checkpointRepo := mocks.NewMockCheckpointRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)

		checkpointRepo.ReplaceFunc = func(ctx context.Context, cp *domain.BalanceCheckpoint, expected domain.Rank) error {
			return &domain.RefreshConflictError{AccountID: cp.AccountID, HostCurrency: cp.HostCurrency}
		}

		uc := usecase.NewCheckpointUseCase(entryRepo, checkpointRepo, nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		_, err := uc.Advance(context.Background(), "acc-1", "USD")

		var conflict *domain.RefreshConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("expected RefreshConflictError, got %v", err)
		}
	})

	t.Run("host move blocks checkpointing", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()

		moved := seedLeg(entryRepo, "e1", "acc-1", 300, base)
		moved.HostAccountID = "host-old"
		entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{moved})
		seedLeg(entryRepo, "e2", "acc-1", 100, base.Add(time.Hour))

		uc := usecase.NewCheckpointUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		_, err := uc.Advance(context.Background(), "acc-1", "USD")

		var ccErr *domain.CurrencyConsistencyError
		if !errors.As(err, &ccErr) {
			t.Fatalf("expected CurrencyConsistencyError, got %v", err)
		}
		if len(ccErr.HostAccounts) != 2 {
			t.Errorf("expected both hosts reported, got %v", ccErr.HostAccounts)
		}
	})

	t.Run("advance emits an outbox event", func(t *testing.T) {
		entryRepo := mocks.NewMockEntryRepository()
		outboxRepo := mocks.NewMockOutboxRepository()

		seedLeg(entryRepo, "e1", "acc-1", 500, base)

		uc := usecase.NewCheckpointUseCase(entryRepo, mocks.NewMockCheckpointRepository(), outboxRepo, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

		if _, err := uc.Advance(context.Background(), "acc-1", "USD"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events := outboxRepo.Events()
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].EventType != domain.EventTypeCheckpointAdvanced {
			t.Errorf("expected %s, got %s", domain.EventTypeCheckpointAdvanced, events[0].EventType)
		}
	})
}

func TestCheckpointUseCase_StalePairs(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entryRepo := mocks.NewMockEntryRepository()
	seedLeg(entryRepo, "e1", "acc-1", 100, base)
	seedLeg(entryRepo, "e2", "acc-2", 100, base.Add(time.Hour))

	uc := usecase.NewCheckpointUseCase(entryRepo, mocks.NewMockCheckpointRepository(), nil, mocks.NewMockIDGenerator(), nil, usecase.CheckpointConfig{})

	pairs, err := uc.StalePairs(context.Background(), base.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].AccountID != "acc-2" {
		t.Errorf("expected acc-2, got %s", pairs[0].AccountID)
	}
}
