package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/infrastructure/metrics"
)

var (
	// ErrInconsistentLedger is returned when the ledger-wide double-entry
	// check fails: countable legs do not net to zero.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: legs do not net to zero")
)

// LedgerUseCase owns the single write path of the engine: recording
// groups of legs, reversing groups, and voiding individual legs. All
// legs of a group are written in one transaction; a partially written
// group would violate the double-entry invariant.
type LedgerUseCase struct {
	txManager      TransactionManager
	entryRepo      EntryRepository
	checkpointRepo CheckpointRepository
	settlementRepo SettlementRepository
	outboxRepo     OutboxRepository
	cache          Cache
	idGen          IDGenerator
	retrier        Retrier
	metrics        *metrics.Metrics

	timeBucket   time.Duration
	netTolerance decimal.Decimal
}

// LedgerConfig carries the tunables of the write path.
type LedgerConfig struct {
	TimeBucket   time.Duration
	NetTolerance decimal.Decimal
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	checkpointRepo CheckpointRepository,
	settlementRepo SettlementRepository,
	outboxRepo OutboxRepository,
	cache Cache,
	idGen IDGenerator,
	cfg LedgerConfig,
) *LedgerUseCase {
	if cfg.TimeBucket <= 0 {
		cfg.TimeBucket = DefaultTimeBucket
	}
	if cfg.NetTolerance.IsZero() {
		cfg.NetTolerance = domain.DefaultNetTolerance
	}

	return &LedgerUseCase{
		txManager:      txManager,
		entryRepo:      entryRepo,
		checkpointRepo: checkpointRepo,
		settlementRepo: settlementRepo,
		outboxRepo:     outboxRepo,
		cache:          cache,
		idGen:          idGen,
		timeBucket:     cfg.TimeBucket,
		netTolerance:   cfg.NetTolerance,
	}
}

// WithRetrier makes the write path retry on transient storage failures.
func (uc *LedgerUseCase) WithRetrier(retrier Retrier) *LedgerUseCase {
	uc.retrier = retrier
	return uc
}

// WithMetrics enables write-path instrumentation.
func (uc *LedgerUseCase) WithMetrics(m *metrics.Metrics) *LedgerUseCase {
	uc.metrics = m
	return uc
}

func (uc *LedgerUseCase) withRetry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}

	return uc.retrier.Retry(ctx, op)
}

// RecordEvent classifies a raw economic event into a balanced leg set
// and records it, returning the new group id.
func (uc *LedgerUseCase) RecordEvent(ctx context.Context, ev domain.RawEvent) (string, error) {
	if err := domain.ValidateEventAmount(ev.Amount, ev.FxRate); err != nil {
		return "", err
	}

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	groupID := uc.idGen.Generate()

	legs, err := domain.Classify(ev, groupID)
	if err != nil {
		return "", err
	}

	return groupID, uc.recordLegs(ctx, groupID, legs)
}

// RecordGroup records a pre-built leg set from a producer that assembles
// its own legs. All legs are stamped onto one generated group id.
func (uc *LedgerUseCase) RecordGroup(ctx context.Context, legs []*domain.LedgerEntry) (string, error) {
	groupID := uc.idGen.Generate()

	for _, leg := range legs {
		leg.GroupID = groupID
		if leg.CreatedAt.IsZero() {
			leg.CreatedAt = time.Now().UTC()
		}
	}

	return groupID, uc.recordLegs(ctx, groupID, legs)
}

func (uc *LedgerUseCase) recordLegs(ctx context.Context, groupID string, legs []*domain.LedgerEntry) error {
	for _, leg := range legs {
		if leg.ID == "" {
			leg.ID = uc.idGen.Generate()
		}
	}

	start := time.Now()

	// Validation failures are producer bugs; nothing is persisted and the
	// write must not be retried blindly.
	if err := domain.ValidateGroup(legs, uc.netTolerance); err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordErrors.WithLabelValues("validation").Inc()
		}
		return err
	}

	if err := uc.withRetry(ctx, func() error {
		return uc.writeLegs(ctx, groupID, legs)
	}); err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordErrors.WithLabelValues("storage").Inc()
		}
		return err
	}

	uc.invalidateBalances(ctx, legs)

	if uc.metrics != nil {
		uc.metrics.GroupsRecorded.Inc()
		uc.metrics.LegsWritten.Add(float64(len(legs)))
		uc.metrics.RecordDuration.Observe(time.Since(start).Seconds())

		gross := decimal.Zero
		debts := 0
		for _, leg := range legs {
			if leg.Direction == domain.Credit {
				gross = gross.Add(leg.AmountInHostCurrency)
			}
			if leg.IsDebt && leg.Direction == domain.Credit {
				debts++
			}
		}
		uc.metrics.GroupAmount.Observe(gross.InexactFloat64())
		if debts > 0 {
			uc.metrics.DebtsRecorded.Add(float64(debts))
		}
	}

	return nil
}

func (uc *LedgerUseCase) writeLegs(ctx context.Context, groupID string, legs []*domain.LedgerEntry) error {
	stale, err := uc.staleCheckpoints(ctx, legs)
	if err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.entryRepo.CreateBatch(ctx, tx, legs); err != nil {
		return err
	}

	// A leg with a producer-supplied timestamp can rank at or before its
	// pair's checkpoint. Folding and delta queries only look past the
	// checkpoint rank, so the checkpoint is dropped in the same
	// transaction and reads fall back to a full scan until the refresher
	// rebuilds it.
	for pair := range stale {
		if err := uc.checkpointRepo.Invalidate(ctx, tx, pair.accountID, pair.hostCurrency); err != nil {
			return err
		}
	}

	// A debt leg's receivable side creates an OWED settlement in the same
	// transaction, so a debt can never exist without its obligation row.
	for _, leg := range legs {
		if !leg.IsDebt || leg.Direction != domain.Credit {
			continue
		}

		settlement := &domain.Settlement{
			ID:            uc.idGen.Generate(),
			GroupID:       groupID,
			Kind:          leg.Kind,
			HostAccountID: leg.HostAccountID,
			HostCurrency:  leg.HostCurrency,
			Amount:        leg.AmountInHostCurrency,
			Status:        domain.SettlementOwed,
			CreatedAt:     leg.CreatedAt,
		}

		if err := uc.settlementRepo.Create(ctx, tx, settlement); err != nil {
			return err
		}

		if err := uc.emit(ctx, tx, settlement.ID, domain.AggregateTypeSettlement, domain.EventTypeDebtRecorded, map[string]any{
			"settlement_id":   settlement.ID,
			"group_id":        groupID,
			"host_account_id": settlement.HostAccountID,
			"kind":            string(settlement.Kind),
			"amount":          settlement.Amount.String(),
		}); err != nil {
			return err
		}
	}

	if err := uc.emit(ctx, tx, groupID, domain.AggregateTypeGroup, domain.EventTypeGroupRecorded, map[string]any{
		"group_id":      groupID,
		"leg_count":     len(legs),
		"host_currency": legs[0].HostCurrency,
		"kind":          string(legs[0].Kind),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReverseGroup writes a new group of offsetting legs for every countable
// leg of the original group, linking each reversal via reversal_of_id.
// A group can be reversed at most once and a reversal group cannot be
// reversed again.
func (uc *LedgerUseCase) ReverseGroup(ctx context.Context, groupID string) (string, error) {
	legs, err := uc.entryRepo.GetByGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	if len(legs) == 0 {
		return "", domain.ErrGroupNotFound
	}

	now := time.Now().UTC()
	reversalGroupID := uc.idGen.Generate()

	var reversals []*domain.LedgerEntry
	for _, leg := range legs {
		if !leg.Countable() {
			continue
		}

		if leg.IsReversal() {
			return "", domain.ErrReversalOfReversal
		}

		reversed, err := uc.entryRepo.HasReversal(ctx, leg.ID)
		if err != nil {
			return "", err
		}
		if reversed {
			return "", domain.ErrAlreadyReversed
		}

		reversals = append(reversals, reversalLeg(leg, reversalGroupID, now))
	}

	if len(reversals) == 0 {
		return "", domain.ErrGroupNotFound
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if err := uc.entryRepo.CreateBatch(ctx, tx, reversals); err != nil {
		return "", err
	}

	if err := uc.emit(ctx, tx, reversalGroupID, domain.AggregateTypeGroup, domain.EventTypeGroupReversed, map[string]any{
		"reversal_group_id": reversalGroupID,
		"original_group_id": groupID,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	uc.invalidateBalances(ctx, reversals)

	if uc.metrics != nil {
		uc.metrics.GroupsReversed.Inc()
		uc.metrics.LegsWritten.Add(float64(len(reversals)))
	}

	return reversalGroupID, nil
}

func reversalLeg(orig *domain.LedgerEntry, reversalGroupID string, now time.Time) *domain.LedgerEntry {
	originalID := orig.ID
	dir := domain.Debit
	if orig.Direction == domain.Debit {
		dir = domain.Credit
	}

	return &domain.LedgerEntry{
		GroupID:                 reversalGroupID,
		AccountID:               orig.AccountID,
		HostAccountID:           orig.HostAccountID,
		Direction:               dir,
		Kind:                    orig.Kind,
		AccountCurrency:         orig.AccountCurrency,
		HostCurrency:            orig.HostCurrency,
		AmountInAccountCurrency: orig.AmountInAccountCurrency.Neg(),
		AmountInHostCurrency:    orig.AmountInHostCurrency.Neg(),
		HostCurrencyFxRate:      orig.HostCurrencyFxRate,
		PlatformFeeInHostCurrency:  orig.PlatformFeeInHostCurrency.Neg(),
		HostFeeInHostCurrency:      orig.HostFeeInHostCurrency.Neg(),
		ProcessorFeeInHostCurrency: orig.ProcessorFeeInHostCurrency.Neg(),
		TaxAmount:               orig.TaxAmount.Neg(),
		IsRefund:                true,
		IsDebt:                  orig.IsDebt,
		IsInternal:              orig.IsInternal,
		ReversalOfID:            &originalID,
		CreatedAt:               now,
	}
}

// VoidEntry soft-deletes a leg. The row is retained for audit but
// excluded from all balance math. If the leg was already folded into its
// pair's checkpoint, the checkpoint is invalidated in the same
// transaction so reads fall back to a correct full scan until the
// refresher rebuilds it.
func (uc *LedgerUseCase) VoidEntry(ctx context.Context, id string) error {
	leg, err := uc.entryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !leg.Countable() {
		return domain.ErrEntryDeleted
	}

	now := time.Now().UTC()

	folded, err := uc.foldedIntoCheckpoint(ctx, leg)
	if err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.entryRepo.SetDeleted(ctx, tx, id, now); err != nil {
		return err
	}

	if folded {
		if err := uc.checkpointRepo.Invalidate(ctx, tx, leg.AccountID, leg.HostCurrency); err != nil {
			return err
		}
	}

	if err := uc.emit(ctx, tx, leg.GroupID, domain.AggregateTypeGroup, domain.EventTypeEntryVoided, map[string]any{
		"entry_id":   id,
		"group_id":   leg.GroupID,
		"account_id": leg.AccountID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	uc.invalidateBalances(ctx, []*domain.LedgerEntry{leg})

	if uc.metrics != nil {
		uc.metrics.EntriesVoided.Inc()
	}

	return nil
}

// GetGroup returns all legs of a group.
func (uc *LedgerUseCase) GetGroup(ctx context.Context, groupID string) ([]*domain.LedgerEntry, error) {
	legs, err := uc.entryRepo.GetByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if len(legs) == 0 {
		return nil, domain.ErrGroupNotFound
	}

	return legs, nil
}

// ListEntriesByAccount lists an account's legs with pagination.
func (uc *LedgerUseCase) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.entryRepo.ListByAccount(ctx, accountID, limit, offset)
}

// CheckConsistency verifies the ledger-wide double-entry invariant.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	net, err := uc.entryRepo.SumLedger(ctx)
	if err != nil {
		return false, err
	}

	if net.Abs().GreaterThan(uc.netTolerance) {
		return false, ErrInconsistentLedger
	}

	return true, nil
}

type checkpointKey struct {
	accountID    string
	hostCurrency string
}

// staleCheckpoints returns the pairs whose current checkpoint already
// covers one of the new legs' ranks.
func (uc *LedgerUseCase) staleCheckpoints(ctx context.Context, legs []*domain.LedgerEntry) (map[checkpointKey]bool, error) {
	checked := make(map[checkpointKey]*domain.BalanceCheckpoint, 2)
	var stale map[checkpointKey]bool

	for _, leg := range legs {
		key := checkpointKey{leg.AccountID, leg.HostCurrency}

		cp, ok := checked[key]
		if !ok {
			var err error
			cp, err = uc.checkpointRepo.GetLatest(ctx, leg.AccountID, leg.HostCurrency)
			if err != nil {
				if !errors.Is(err, domain.ErrCheckpointNotFound) {
					return nil, err
				}
				cp = nil
			}
			checked[key] = cp
		}

		if cp == nil {
			continue
		}

		if domain.RankOf(leg, uc.timeBucket).Compare(cp.Rank) <= 0 {
			if stale == nil {
				stale = make(map[checkpointKey]bool, 1)
			}
			stale[key] = true
		}
	}

	return stale, nil
}

func (uc *LedgerUseCase) foldedIntoCheckpoint(ctx context.Context, leg *domain.LedgerEntry) (bool, error) {
	cp, err := uc.checkpointRepo.GetLatest(ctx, leg.AccountID, leg.HostCurrency)
	if err != nil {
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			return false, nil
		}

		return false, err
	}

	rank := domain.RankOf(leg, uc.timeBucket)

	return rank.Compare(cp.Rank) <= 0, nil
}

func (uc *LedgerUseCase) emit(ctx context.Context, tx Transaction, aggregateID, aggregateType, eventType string, payload map[string]any) error {
	if uc.outboxRepo == nil {
		return nil
	}

	return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}

func (uc *LedgerUseCase) invalidateBalances(ctx context.Context, legs []*domain.LedgerEntry) {
	if uc.cache == nil {
		return
	}

	seen := make(map[string]bool)
	for _, leg := range legs {
		if seen[leg.AccountID] {
			continue
		}
		seen[leg.AccountID] = true

		// Best effort: a stale cache entry expires on its own TTL.
		_ = uc.cache.Delete(ctx, balanceCacheKey(leg.AccountID))
	}
}
