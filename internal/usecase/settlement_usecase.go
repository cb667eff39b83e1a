package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/infrastructure/metrics"
)

var (
	// ErrAmbiguousSettlement is returned when a group carries more than
	// one debt and the caller did not say which kind to settle.
	ErrAmbiguousSettlement = errors.New("group has multiple debts; kind is required")
	// ErrSettlementGroupMissing is returned when the referenced
	// cash-movement group does not exist in the ledger.
	ErrSettlementGroupMissing = errors.New("settlement group has no ledger entries")
)

// SettlementUseCase tracks debt legs through their lifecycle: an OWED
// row is created with the debt leg (see LedgerUseCase.recordLegs) and
// transitions to SETTLED exactly once, when a matching cash-movement
// group is recorded. Overdue debts are surfaced for manual
// reconciliation; the engine never writes a debt off.
type SettlementUseCase struct {
	txManager      TransactionManager
	settlementRepo SettlementRepository
	entryRepo      EntryRepository
	outboxRepo     OutboxRepository
	idGen          IDGenerator
	metrics        *metrics.Metrics

	grace time.Duration
}

// SettlementConfig carries the tracker's tunables.
type SettlementConfig struct {
	GracePeriod time.Duration
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	settlementRepo SettlementRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	cfg SettlementConfig,
) *SettlementUseCase {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultSettlementGrace
	}

	return &SettlementUseCase{
		txManager:      txManager,
		settlementRepo: settlementRepo,
		entryRepo:      entryRepo,
		outboxRepo:     outboxRepo,
		idGen:          idGen,
		grace:          cfg.GracePeriod,
	}
}

// WithMetrics enables settlement instrumentation.
func (uc *SettlementUseCase) WithMetrics(m *metrics.Metrics) *SettlementUseCase {
	uc.metrics = m
	return uc
}

// SettleInput identifies the debt to settle and the cash movement that
// pays it off. Kind may be omitted when the group carries exactly one
// debt.
type SettleInput struct {
	GroupID           string
	Kind              domain.Kind
	SettlementGroupID string
}

// Settle marks a debt SETTLED. A second settlement of the same debt is
// rejected with ErrAlreadySettled.
func (uc *SettlementUseCase) Settle(ctx context.Context, input SettleInput) (*domain.Settlement, error) {
	settlement, err := uc.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	// The settlement must reference a real cash movement.
	cashLegs, err := uc.entryRepo.GetByGroup(ctx, input.SettlementGroupID)
	if err != nil {
		return nil, err
	}
	if len(cashLegs) == 0 {
		return nil, ErrSettlementGroupMissing
	}

	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.settlementRepo.MarkSettled(ctx, tx, settlement.ID, input.SettlementGroupID, now); err != nil {
		return nil, err
	}

	if uc.outboxRepo != nil {
		err = uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   settlement.ID,
			AggregateType: domain.AggregateTypeSettlement,
			EventType:     domain.EventTypeDebtSettled,
			Payload: map[string]any{
				"settlement_id":       settlement.ID,
				"group_id":            settlement.GroupID,
				"settlement_group_id": input.SettlementGroupID,
			},
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	settlement.Status = domain.SettlementSettled
	settlement.SettlementGroupID = &input.SettlementGroupID
	settlement.SettledAt = &now

	if uc.metrics != nil {
		uc.metrics.DebtsSettled.Inc()
	}

	return settlement, nil
}

// OutstandingDebts lists a host's OWED settlements, feeding periodic
// invoicing of accumulated platform tips and fee shares.
func (uc *SettlementUseCase) OutstandingDebts(ctx context.Context, hostAccountID string, limit, offset int) ([]*domain.Settlement, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.settlementRepo.ListOutstanding(ctx, hostAccountID, limit, offset)
}

// OverdueDebts lists OWED settlements older than the grace period. The
// SQL cutoff narrows the scan; the domain predicate decides, so a row
// drifting across the boundary between query and read is not reported.
func (uc *SettlementUseCase) OverdueDebts(ctx context.Context, hostAccountID string) ([]*domain.Settlement, error) {
	now := time.Now().UTC()

	candidates, err := uc.settlementRepo.ListOverdue(ctx, hostAccountID, now.Add(-uc.grace))
	if err != nil {
		return nil, err
	}

	overdue := make([]*domain.Settlement, 0, len(candidates))
	for _, s := range candidates {
		if s.Overdue(now, uc.grace) {
			overdue = append(overdue, s)
		}
	}

	if uc.metrics != nil {
		uc.metrics.DebtsOverdue.Set(float64(len(overdue)))
	}

	return overdue, nil
}

func (uc *SettlementUseCase) resolve(ctx context.Context, input SettleInput) (*domain.Settlement, error) {
	if input.Kind != "" {
		return uc.settlementRepo.GetByGroupAndKind(ctx, input.GroupID, input.Kind)
	}

	settlements, err := uc.settlementRepo.ListByGroup(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}

	switch len(settlements) {
	case 0:
		return nil, domain.ErrSettlementNotFound
	case 1:
		return settlements[0], nil
	default:
		return nil, ErrAmbiguousSettlement
	}
}
