package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/infrastructure/metrics"
)

// BalanceUseCase is the incremental balance resolver: the primary read
// API. It answers from checkpoint + delta when the account passes the
// single-host/single-currency consistency check and a checkpoint exists,
// and falls back to a bounded full scan from epoch otherwise. Reads
// never take locks shared with the refresher; they see either the
// previous checkpoint or the new one.
type BalanceUseCase struct {
	entryRepo      EntryRepository
	checkpointRepo CheckpointRepository
	cache          Cache
	logger         *slog.Logger
	metrics        *metrics.Metrics

	fullScanMaxLegs int
	scanTimeout     time.Duration
	cacheTTL        time.Duration
}

// BalanceConfig carries the resolver's tunables.
type BalanceConfig struct {
	FullScanMaxLegs int
	ScanTimeout     time.Duration
	CacheTTL        time.Duration
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(
	entryRepo EntryRepository,
	checkpointRepo CheckpointRepository,
	cache Cache,
	logger *slog.Logger,
	cfg BalanceConfig,
) *BalanceUseCase {
	if cfg.FullScanMaxLegs <= 0 {
		cfg.FullScanMaxLegs = DefaultFullScanMaxLegs
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultBalanceCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BalanceUseCase{
		entryRepo:       entryRepo,
		checkpointRepo:  checkpointRepo,
		cache:           cache,
		logger:          logger,
		fullScanMaxLegs: cfg.FullScanMaxLegs,
		scanTimeout:     cfg.ScanTimeout,
		cacheTTL:        cfg.CacheTTL,
	}
}

// WithMetrics enables read-path instrumentation.
func (uc *BalanceUseCase) WithMetrics(m *metrics.Metrics) *BalanceUseCase {
	uc.metrics = m
	return uc
}

// BalanceOptions alters a single read.
type BalanceOptions struct {
	// Fresh bypasses the cache and the checkpoint, forcing an exact full
	// scan. Used when freshness matters more than latency, e.g. payout
	// eligibility.
	Fresh bool
}

// CurrentBalance resolves the account's available and disputed balances.
func (uc *BalanceUseCase) CurrentBalance(ctx context.Context, accountID string, opts BalanceOptions) (*domain.Balance, error) {
	start := time.Now()

	if !opts.Fresh {
		if cached := uc.fromCache(ctx, accountID); cached != nil {
			uc.observeRead("cache", start)
			return cached, nil
		}
	}

	profile, err := uc.entryRepo.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if len(profile.HostCurrencies) == 0 {
		// New account with no history.
		uc.observeRead("full_scan", start)
		return &domain.Balance{
			AccountID: accountID,
			Source:    domain.BalanceFromFullScan,
		}, nil
	}

	currency := profile.HostCurrencies[0]

	if !profile.Consistent() {
		// Host switch or mixed currencies: flagged for investigation, the
		// balance is still served from a scan of the current currency
		// rather than a blended checkpoint figure.
		ccErr := &domain.CurrencyConsistencyError{
			AccountID:      accountID,
			HostCurrencies: profile.HostCurrencies,
			HostAccounts:   profile.HostAccounts,
		}
		uc.logger.Warn("account failed currency consistency check, using full scan",
			"account_id", accountID,
			"error", ccErr,
		)

		return uc.fullScan(ctx, accountID, currency, start)
	}

	if opts.Fresh {
		return uc.fullScan(ctx, accountID, currency, start)
	}

	cp, err := uc.checkpointRepo.GetLatest(ctx, accountID, currency)
	if err != nil {
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			// Explicit fallback path, not an error.
			return uc.fullScan(ctx, accountID, currency, start)
		}

		return nil, err
	}

	delta, err := uc.entryRepo.SumAfterRank(ctx, accountID, currency, cp.Rank)
	if err != nil {
		return nil, err
	}

	disputed, err := uc.entryRepo.SumDisputed(ctx, accountID, currency)
	if err != nil {
		return nil, err
	}

	balance := &domain.Balance{
		AccountID: accountID,
		Currency:  currency,
		Available: cp.Balance.Add(delta),
		Disputed:  disputed,
		AsOf:      cp.AsOf,
		Source:    domain.BalanceFromCheckpoint,
	}

	uc.toCache(ctx, balance)
	uc.observeRead("checkpoint", start)

	return balance, nil
}

func (uc *BalanceUseCase) fullScan(ctx context.Context, accountID, currency string, start time.Time) (*domain.Balance, error) {
	if uc.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.scanTimeout)
		defer cancel()
	}

	scan, err := uc.entryRepo.FullScan(ctx, accountID, currency, uc.fullScanMaxLegs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			uc.observeUnavailable()
			return nil, &domain.BalanceUnavailableError{AccountID: accountID, Reason: "scan deadline exceeded"}
		}

		return nil, err
	}

	if scan.Truncated {
		uc.observeUnavailable()
		return nil, &domain.BalanceUnavailableError{AccountID: accountID, Reason: "scan budget exceeded"}
	}

	balance := &domain.Balance{
		AccountID: accountID,
		Currency:  currency,
		Available: scan.Available,
		Disputed:  scan.Disputed,
		Source:    domain.BalanceFromFullScan,
	}

	uc.toCache(ctx, balance)

	if uc.metrics != nil {
		uc.metrics.FullScanLegs.Observe(float64(scan.Scanned))
	}
	uc.observeRead("full_scan", start)

	return balance, nil
}

func (uc *BalanceUseCase) observeRead(source string, start time.Time) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.BalanceReads.WithLabelValues(source).Inc()
	uc.metrics.BalanceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

func (uc *BalanceUseCase) observeUnavailable() {
	if uc.metrics != nil {
		uc.metrics.BalanceUnavailable.Inc()
	}
}

func balanceCacheKey(accountID string) string {
	return "balance:" + accountID
}

func (uc *BalanceUseCase) fromCache(ctx context.Context, accountID string) *domain.Balance {
	if uc.cache == nil {
		return nil
	}

	raw, err := uc.cache.Get(ctx, balanceCacheKey(accountID))
	if err != nil || raw == nil {
		return nil
	}

	var balance domain.Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return nil
	}

	return &balance
}

func (uc *BalanceUseCase) toCache(ctx context.Context, balance *domain.Balance) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(balance)
	if err != nil {
		return
	}

	_ = uc.cache.Set(ctx, balanceCacheKey(balance.AccountID), raw, uc.cacheTTL)
}
