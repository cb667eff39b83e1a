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

type settlementFixture struct {
	entryRepo      *mocks.MockEntryRepository
	settlementRepo *mocks.MockSettlementRepository
	outboxRepo     *mocks.MockOutboxRepository
	uc             *usecase.SettlementUseCase
}

func newSettlementFixture(cfg usecase.SettlementConfig) *settlementFixture {
	f := &settlementFixture{
		entryRepo:      mocks.NewMockEntryRepository(),
		settlementRepo: mocks.NewMockSettlementRepository(),
		outboxRepo:     mocks.NewMockOutboxRepository(),
	}
	f.uc = usecase.NewSettlementUseCase(
		mocks.NewMockTransactionManager(),
		f.settlementRepo,
		f.entryRepo,
		f.outboxRepo,
		mocks.NewMockIDGenerator(),
		cfg,
	)
	return f
}

func (f *settlementFixture) seedDebt(id, groupID string, kind domain.Kind, createdAt time.Time) *domain.Settlement {
	s := &domain.Settlement{
		ID:            id,
		GroupID:       groupID,
		Kind:          kind,
		HostAccountID: "host-1",
		HostCurrency:  "USD",
		Amount:        decimal.NewFromInt(50),
		Status:        domain.SettlementOwed,
		CreatedAt:     createdAt,
	}
	f.settlementRepo.Create(context.Background(), nil, s)
	return s
}

func (f *settlementFixture) seedCashGroup(groupID string) {
	leg := seedLeg(f.entryRepo, "leg-"+groupID, "platform", 50, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	leg.GroupID = groupID
	f.entryRepo.CreateBatch(context.Background(), nil, []*domain.LedgerEntry{leg})
}

func TestSettlementUseCase_Settle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("debt settles exactly once", func(t *testing.T) {
		f := newSettlementFixture(usecase.SettlementConfig{})
		f.seedDebt("s1", "group-1", domain.KindPlatformTipDebt, now)
		f.seedCashGroup("cash-group-1")

		settled, err := f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "group-1",
			SettlementGroupID: "cash-group-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settled.Status != domain.SettlementSettled {
			t.Errorf("expected SETTLED, got %s", settled.Status)
		}
		if settled.SettlementGroupID == nil || *settled.SettlementGroupID != "cash-group-1" {
			t.Error("expected settlement group reference")
		}
		if settled.SettledAt == nil {
			t.Error("expected settled timestamp")
		}

		_, err = f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "group-1",
			SettlementGroupID: "cash-group-1",
		})
		if !errors.Is(err, domain.ErrAlreadySettled) {
			t.Errorf("expected ErrAlreadySettled, got %v", err)
		}
	})

	t.Run("settlement emits outbox event", func(t *testing.T) {
		f := newSettlementFixture(usecase.SettlementConfig{})
		f.seedDebt("s1", "group-1", domain.KindPlatformTipDebt, now)
		f.seedCashGroup("cash-group-1")

		if _, err := f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "group-1",
			SettlementGroupID: "cash-group-1",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events := f.outboxRepo.Events()
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].EventType != domain.EventTypeDebtSettled {
			t.Errorf("expected %s, got %s", domain.EventTypeDebtSettled, events[0].EventType)
		}
	})

	t.Run("missing cash group rejected", func(t *testing.T) {
		f := newSettlementFixture(usecase.SettlementConfig{})
		f.seedDebt("s1", "group-1", domain.KindPlatformTipDebt, now)

		_, err := f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "group-1",
			SettlementGroupID: "no-such-group",
		})
		if !errors.Is(err, usecase.ErrSettlementGroupMissing) {
			t.Errorf("expected ErrSettlementGroupMissing, got %v", err)
		}
	})

	t.Run("multiple debts require a kind", func(t *testing.T) {
		f := newSettlementFixture(usecase.SettlementConfig{})
		f.seedDebt("s1", "group-1", domain.KindPlatformTipDebt, now)
		f.seedDebt("s2", "group-1", domain.KindHostFeeShareDebt, now)
		f.seedCashGroup("cash-group-1")

		_, err := f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "group-1",
			SettlementGroupID: "cash-group-1",
		})
		if !errors.Is(err, usecase.ErrAmbiguousSettlement) {
			t.Errorf("expected ErrAmbiguousSettlement, got %v", err)
		}

		settled, err := f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "group-1",
			Kind:              domain.KindHostFeeShareDebt,
			SettlementGroupID: "cash-group-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settled.ID != "s2" {
			t.Errorf("expected s2, got %s", settled.ID)
		}
	})

	t.Run("unknown debt rejected", func(t *testing.T) {
		f := newSettlementFixture(usecase.SettlementConfig{})
		f.seedCashGroup("cash-group-1")

		_, err := f.uc.Settle(context.Background(), usecase.SettleInput{
			GroupID:           "no-debts-here",
			SettlementGroupID: "cash-group-1",
		})
		if !errors.Is(err, domain.ErrSettlementNotFound) {
			t.Errorf("expected ErrSettlementNotFound, got %v", err)
		}
	})
}

func TestSettlementUseCase_OverdueDebts(t *testing.T) {
	f := newSettlementFixture(usecase.SettlementConfig{GracePeriod: 30 * 24 * time.Hour})

	f.seedDebt("old", "group-1", domain.KindPlatformTipDebt, time.Now().UTC().Add(-40*24*time.Hour))
	f.seedDebt("fresh", "group-2", domain.KindPlatformTipDebt, time.Now().UTC().Add(-5*24*time.Hour))

	overdue, err := f.uc.OverdueDebts(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("expected 1 overdue debt, got %d", len(overdue))
	}
	if overdue[0].ID != "old" {
		t.Errorf("expected old, got %s", overdue[0].ID)
	}

	outstanding, err := f.uc.OutstandingDebts(context.Background(), "host-1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outstanding) != 2 {
		t.Errorf("expected 2 outstanding debts, got %d", len(outstanding))
	}
}

func TestSettlementUseCase_OverdueDebtsRechecksRows(t *testing.T) {
	f := newSettlementFixture(usecase.SettlementConfig{GracePeriod: 30 * 24 * time.Hour})

	// A stale read can hand back rows that no longer breach the grace
	// period or were settled in the meantime; they must not be reported.
	f.settlementRepo.ListOverdueFunc = func(ctx context.Context, hostAccountID string, before time.Time) ([]*domain.Settlement, error) {
		return []*domain.Settlement{
			{ID: "breached", Status: domain.SettlementOwed, CreatedAt: time.Now().UTC().Add(-40 * 24 * time.Hour)},
			{ID: "within-grace", Status: domain.SettlementOwed, CreatedAt: time.Now().UTC().Add(-time.Hour)},
			{ID: "settled", Status: domain.SettlementSettled, CreatedAt: time.Now().UTC().Add(-40 * 24 * time.Hour)},
		}, nil
	}

	overdue, err := f.uc.OverdueDebts(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "breached" {
		t.Fatalf("expected only the breached debt, got %#v", overdue)
	}
}
