package usecase

import "time"

const (
	// DefaultTimeBucket is the ordering window that absorbs clock and
	// replication jitter between producers.
	DefaultTimeBucket = 10 * time.Second

	// DefaultFullScanMaxLegs bounds the epoch fallback so an arbitrarily
	// large account history reports BalanceUnavailableError instead of
	// hanging.
	DefaultFullScanMaxLegs = 100_000

	// DefaultBalanceCacheTTL keeps cached balances well inside the
	// checkpoint staleness budget.
	DefaultBalanceCacheTTL = 30 * time.Second

	// DefaultSettlementGrace is how long a debt may stay OWED before it
	// is surfaced for manual reconciliation.
	DefaultSettlementGrace = 30 * 24 * time.Hour
)
