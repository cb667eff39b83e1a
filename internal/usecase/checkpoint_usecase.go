package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/infrastructure/metrics"
)

// CheckpointUseCase advances balance checkpoints. It is the only writer
// of the checkpoint store; the scheduler guarantees a single refresher
// per account-currency pair, and the optimistic rank guard catches
// anything that slips through so a fold is never applied twice.
type CheckpointUseCase struct {
	entryRepo      EntryRepository
	checkpointRepo CheckpointRepository
	outboxRepo     OutboxRepository
	idGen          IDGenerator
	logger         *slog.Logger
	metrics        *metrics.Metrics

	timeBucket time.Duration
}

// CheckpointConfig carries the refresher's tunables.
type CheckpointConfig struct {
	TimeBucket time.Duration
}

// NewCheckpointUseCase creates a new CheckpointUseCase.
func NewCheckpointUseCase(
	entryRepo EntryRepository,
	checkpointRepo CheckpointRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	logger *slog.Logger,
	cfg CheckpointConfig,
) *CheckpointUseCase {
	if cfg.TimeBucket <= 0 {
		cfg.TimeBucket = DefaultTimeBucket
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CheckpointUseCase{
		entryRepo:      entryRepo,
		checkpointRepo: checkpointRepo,
		outboxRepo:     outboxRepo,
		idGen:          idGen,
		logger:         logger,
		timeBucket:     cfg.TimeBucket,
	}
}

// WithMetrics enables refresh instrumentation.
func (uc *CheckpointUseCase) WithMetrics(m *metrics.Metrics) *CheckpointUseCase {
	uc.metrics = m
	return uc
}

// Advance folds all stable legs after the current checkpoint into a new
// one and atomically replaces the latest row for the pair. Legs in the
// still-open time bucket are left for the next run: a producer could yet
// write a leg ranking before them.
//
// On a rank conflict the latest checkpoint is re-read and the fold
// retried once, then the conflict is surfaced.
func (uc *CheckpointUseCase) Advance(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error) {
	profile, err := uc.entryRepo.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// An account that moved between hosts must not blend pre- and
	// post-move legs into one checkpoint window.
	if !profile.Consistent() {
		return nil, &domain.CurrencyConsistencyError{
			AccountID:      accountID,
			HostCurrencies: profile.HostCurrencies,
			HostAccounts:   profile.HostAccounts,
		}
	}

	cp, err := uc.advanceOnce(ctx, accountID, hostCurrency)

	var conflict *domain.RefreshConflictError
	if errors.As(err, &conflict) {
		if uc.metrics != nil {
			uc.metrics.CheckpointConflicts.Inc()
		}
		uc.logger.Warn("checkpoint refresh conflict, retrying once",
			"account_id", accountID,
			"host_currency", hostCurrency,
		)

		return uc.advanceOnce(ctx, accountID, hostCurrency)
	}

	return cp, err
}

func (uc *CheckpointUseCase) advanceOnce(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error) {
	start := time.Now()

	current, err := uc.checkpointRepo.GetLatest(ctx, accountID, hostCurrency)
	if err != nil && !errors.Is(err, domain.ErrCheckpointNotFound) {
		return nil, err
	}

	after := domain.ZeroRank()
	base := domain.BalanceCheckpoint{
		AccountID:    accountID,
		HostCurrency: hostCurrency,
	}

	if current != nil {
		after = current.Rank
		base = *current
	}

	// Only buckets strictly before the live one are stable.
	maxBucket := domain.TimeBucketOf(time.Now().UTC(), uc.timeBucket)

	fold, err := uc.entryRepo.FoldRange(ctx, accountID, hostCurrency, after, maxBucket)
	if err != nil {
		return nil, err
	}

	if fold.Count == 0 {
		// Nothing stable to fold; the existing checkpoint stands.
		if current == nil {
			return nil, domain.ErrCheckpointNotFound
		}

		return current, nil
	}

	now := time.Now().UTC()
	next := &domain.BalanceCheckpoint{
		AccountID:    accountID,
		HostCurrency: hostCurrency,
		Rank:         fold.LastRank,
		Balance:      base.Balance.Add(fold.Sum),
		AsOf:         fold.AsOf,
		CreatedAt:    base.CreatedAt,
		UpdatedAt:    now,
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}

	if err := uc.checkpointRepo.Replace(ctx, next, after); err != nil {
		return nil, err
	}

	uc.logger.Debug("checkpoint advanced",
		"account_id", accountID,
		"host_currency", hostCurrency,
		"folded_legs", fold.Count,
		"balance", next.Balance.String(),
	)

	if uc.metrics != nil {
		uc.metrics.CheckpointsAdvanced.Inc()
		uc.metrics.CheckpointLegsFolded.Add(float64(fold.Count))
		uc.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}

	uc.emitAdvanced(ctx, next)

	return next, nil
}

// GetLatest exposes the current checkpoint, including its AsOf staleness
// bound, for operational monitoring.
func (uc *CheckpointUseCase) GetLatest(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error) {
	return uc.checkpointRepo.GetLatest(ctx, accountID, hostCurrency)
}

// StalePairs lists account-currency pairs with ledger activity since the
// given time, i.e. candidates for the next refresh sweep.
func (uc *CheckpointUseCase) StalePairs(ctx context.Context, since time.Time, limit int) ([]AccountCurrency, error) {
	return uc.entryRepo.ActivePairs(ctx, since, limit)
}

func (uc *CheckpointUseCase) emitAdvanced(ctx context.Context, cp *domain.BalanceCheckpoint) {
	if uc.outboxRepo == nil {
		return
	}

	// Checkpoint advancement is derived state; losing the event is
	// preferable to failing the fold.
	err := uc.outboxRepo.Create(ctx, nil, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   cp.AccountID,
		AggregateType: domain.AggregateTypeCheckpoint,
		EventType:     domain.EventTypeCheckpointAdvanced,
		Payload: map[string]any{
			"account_id":    cp.AccountID,
			"host_currency": cp.HostCurrency,
			"balance":       cp.Balance.String(),
			"as_of":         cp.AsOf.Format(time.RFC3339),
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		uc.logger.Warn("failed to emit checkpoint event", "error", err)
	}
}
