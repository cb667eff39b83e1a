package refresher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

// CheckpointAdvancer defines the checkpoint operations the refresher
// drives. It is satisfied by usecase.CheckpointUseCase.
type CheckpointAdvancer interface {
	Advance(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error)
	StalePairs(ctx context.Context, since time.Time, limit int) ([]usecase.AccountCurrency, error)
}

// Refresher periodically folds recently written legs into balance
// checkpoints. It is the only writer of checkpoints; request handlers
// only read them.
type Refresher struct {
	checkpoints CheckpointAdvancer
	logger      *slog.Logger
	batchSize   int
	interval    time.Duration

	// lastSweep bounds the stale-pair query. Sweeps overlap by one
	// interval so a pair written right at a sweep boundary is not missed.
	lastSweep time.Time

	mu          sync.Mutex
	pairs       map[string]*PairStatus
	sweepStatus SweepStatus
}

// PairStatus records the most recent refresh outcome for one
// account-currency pair.
type PairStatus struct {
	AccountID    string    `json:"account_id"`
	HostCurrency string    `json:"host_currency"`
	LastAttempt  time.Time `json:"last_attempt"`
	LastSuccess  time.Time `json:"last_success,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// SweepStatus describes the most recent sweep.
type SweepStatus struct {
	LastSweepAt    time.Time `json:"last_sweep_at,omitzero"`
	LastSweepError string    `json:"last_sweep_error,omitempty"`
	PairsRefreshed int       `json:"pairs_refreshed"`
	PairsFailed    int       `json:"pairs_failed"`
}

// Status is a point-in-time view of the refresher for monitoring.
type Status struct {
	SweepStatus
	Pairs []PairStatus `json:"pairs"`
}

// Pairs older than this are dropped from the status view.
const pairStatusRetention = 24 * time.Hour

// Config for Refresher.
type Config struct {
	Checkpoints CheckpointAdvancer
	Logger      *slog.Logger
	BatchSize   int           // Max pairs refreshed per sweep
	Interval    time.Duration // Sweep interval
}

// New creates a new Refresher.
func New(cfg Config) *Refresher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Refresher{
		checkpoints: cfg.Checkpoints,
		logger:      cfg.Logger,
		batchSize:   cfg.BatchSize,
		interval:    cfg.Interval,
		pairs:       make(map[string]*PairStatus),
	}
}

// Status reports the last sweep outcome and the per-pair refresh
// history, most recently attempted pairs first.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := Status{SweepStatus: r.sweepStatus, Pairs: make([]PairStatus, 0, len(r.pairs))}
	for _, p := range r.pairs {
		status.Pairs = append(status.Pairs, *p)
	}
	sort.Slice(status.Pairs, func(i, j int) bool {
		return status.Pairs[i].LastAttempt.After(status.Pairs[j].LastAttempt)
	})
	return status
}

func (r *Refresher) recordPair(pair usecase.AccountCurrency, at time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair.AccountID + "/" + pair.HostCurrency
	ps, ok := r.pairs[key]
	if !ok {
		ps = &PairStatus{AccountID: pair.AccountID, HostCurrency: pair.HostCurrency}
		r.pairs[key] = ps
	}
	ps.LastAttempt = at
	if err != nil {
		ps.LastError = err.Error()
	} else {
		ps.LastSuccess = at
		ps.LastError = ""
	}

	for k, p := range r.pairs {
		if at.Sub(p.LastAttempt) > pairStatusRetention {
			delete(r.pairs, k)
		}
	}
}

func (r *Refresher) recordSweep(at time.Time, refreshed, failed int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepStatus.LastSweepAt = at
	r.sweepStatus.PairsRefreshed = refreshed
	r.sweepStatus.PairsFailed = failed
	if err != nil {
		r.sweepStatus.LastSweepError = err.Error()
	} else {
		r.sweepStatus.LastSweepError = ""
	}
}

// Start begins the refresh worker. It runs continuously until the
// context is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.logger.Info("checkpoint refresher started",
		slog.Int("batch_size", r.batchSize),
		slog.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	if err := r.sweep(ctx); err != nil {
		r.logger.Error("error sweeping on start", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("checkpoint refresher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.logger.Error("error sweeping", slog.String("error", err.Error()))
			}
		}
	}
}

// sweep finds account-currency pairs with recent writes and advances
// their checkpoints.
func (r *Refresher) sweep(ctx context.Context) error {
	sweepStart := time.Now().UTC()

	since := r.lastSweep.Add(-r.interval)
	pairs, err := r.checkpoints.StalePairs(ctx, since, r.batchSize)
	if err != nil {
		r.recordSweep(sweepStart, 0, 0, err)
		return err
	}

	if len(pairs) == 0 {
		r.lastSweep = sweepStart
		r.recordSweep(sweepStart, 0, 0, nil)
		return nil
	}

	r.logger.Debug("refreshing checkpoints", slog.Int("pairs", len(pairs)))

	refreshed, failed := 0, 0
	for _, pair := range pairs {
		err := r.refreshPair(ctx, pair)
		r.recordPair(pair, time.Now().UTC(), err)
		if err != nil {
			failed++
			r.logger.Error("failed to refresh checkpoint",
				slog.String("account_id", pair.AccountID),
				slog.String("host_currency", pair.HostCurrency),
				slog.String("error", err.Error()))
			// Continue with other pairs even if one fails
			continue
		}
		refreshed++
	}

	r.lastSweep = sweepStart
	r.recordSweep(sweepStart, refreshed, failed, nil)
	return nil
}

// refreshPair advances one checkpoint. Inconsistent accounts are
// expected and skipped quietly; they are served by full scans instead.
func (r *Refresher) refreshPair(ctx context.Context, pair usecase.AccountCurrency) error {
	cp, err := r.checkpoints.Advance(ctx, pair.AccountID, pair.HostCurrency)
	if err != nil {
		var inconsistent *domain.CurrencyConsistencyError
		if errors.As(err, &inconsistent) {
			r.logger.Warn("skipping inconsistent account",
				slog.String("account_id", pair.AccountID),
				slog.Int("host_currencies", len(inconsistent.HostCurrencies)))
			return nil
		}
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			// Nothing stable to fold yet
			return nil
		}
		return err
	}

	r.logger.Debug("checkpoint advanced",
		slog.String("account_id", cp.AccountID),
		slog.String("host_currency", cp.HostCurrency),
		slog.String("balance", cp.Balance.String()))

	return nil
}
