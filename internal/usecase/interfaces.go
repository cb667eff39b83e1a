package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/hostledger/internal/domain"
)

// AccountCurrency identifies one checkpointable (account, host currency)
// pair.
type AccountCurrency struct {
	AccountID    string
	HostCurrency string
}

// AccountProfile summarizes the currency/host footprint of an account's
// full leg history, used by the single-host/single-currency consistency
// check. Slices are ordered by most recent activity first.
type AccountProfile struct {
	HostCurrencies []string
	HostAccounts   []string
}

// Consistent reports whether checkpoints are usable for the account.
func (p AccountProfile) Consistent() bool {
	return len(p.HostCurrencies) <= 1 && len(p.HostAccounts) <= 1
}

// FoldResult is the outcome of folding a rank range of legs.
type FoldResult struct {
	Sum      decimal.Decimal
	LastRank domain.Rank
	AsOf     time.Time
	Count    int
}

// ScanResult is the outcome of a bounded full scan.
type ScanResult struct {
	Available decimal.Decimal
	Disputed  decimal.Decimal
	Scanned   int
	// Truncated is set when the scan stopped at its leg budget before
	// exhausting history.
	Truncated bool
}

// EntryRepository defines data access for ledger legs.
type EntryRepository interface {
	// CreateBatch persists all legs of one group; callers wrap it in a
	// transaction so a group is never half-written.
	CreateBatch(ctx context.Context, tx Transaction, entries []*domain.LedgerEntry) error
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	GetByGroup(ctx context.Context, groupID string) ([]*domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	// HasReversal reports whether any leg references id via reversal_of_id.
	HasReversal(ctx context.Context, id string) (bool, error)
	SetDeleted(ctx context.Context, tx Transaction, id string, at time.Time) error

	// SumAfterRank sums NetAmount over countable, undisputed legs of the
	// pair with rank strictly after the given rank.
	SumAfterRank(ctx context.Context, accountID, hostCurrency string, after domain.Rank) (decimal.Decimal, error)
	// SumDisputed sums NetAmount over disputed legs with no reversal.
	SumDisputed(ctx context.Context, accountID, hostCurrency string) (decimal.Decimal, error)
	// FullScan is the epoch fallback, bounded by maxLegs.
	FullScan(ctx context.Context, accountID, hostCurrency string, maxLegs int) (*ScanResult, error)
	// FoldRange sums countable, undisputed legs of the pair with rank
	// after `after` and time bucket strictly before maxBucket, returning
	// the rank and timestamp of the last folded leg.
	FoldRange(ctx context.Context, accountID, hostCurrency string, after domain.Rank, maxBucket int64) (*FoldResult, error)

	Profile(ctx context.Context, accountID string) (AccountProfile, error)
	// ActivePairs lists pairs with legs created since the given time,
	// feeding the periodic refresher.
	ActivePairs(ctx context.Context, since time.Time, limit int) ([]AccountCurrency, error)
	// SumLedger is the ledger-wide double-entry check: net of all
	// countable legs in host currency.
	SumLedger(ctx context.Context) (decimal.Decimal, error)
}

// CheckpointRepository defines data access for balance checkpoints.
type CheckpointRepository interface {
	GetLatest(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error)
	// Replace atomically swaps the latest checkpoint of the pair. The
	// expected rank guards against concurrent refreshers: a mismatch
	// returns RefreshConflictError and applies nothing.
	Replace(ctx context.Context, cp *domain.BalanceCheckpoint, expected domain.Rank) error
	// Invalidate drops the pair's checkpoint, forcing a rebuild from
	// epoch. Used when a folded leg is voided or disputed after the fact.
	Invalidate(ctx context.Context, tx Transaction, accountID, hostCurrency string) error
}

// SettlementRepository defines data access for debt settlements.
type SettlementRepository interface {
	Create(ctx context.Context, tx Transaction, s *domain.Settlement) error
	GetByGroupAndKind(ctx context.Context, groupID string, kind domain.Kind) (*domain.Settlement, error)
	ListByGroup(ctx context.Context, groupID string) ([]*domain.Settlement, error)
	// MarkSettled transitions OWED -> SETTLED; settling an already
	// settled row returns ErrAlreadySettled.
	MarkSettled(ctx context.Context, tx Transaction, id, settlementGroupID string, at time.Time) error
	ListOutstanding(ctx context.Context, hostAccountID string, limit, offset int) ([]*domain.Settlement, error)
	ListOverdue(ctx context.Context, hostAccountID string, before time.Time) ([]*domain.Settlement, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient storage failures such as
// deadlocks and serialization conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
