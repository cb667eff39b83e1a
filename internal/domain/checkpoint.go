package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCheckpoint is the precomputed cumulative balance of one
// (account, host currency) pair as of Rank, inclusive of the ranked leg.
// Exactly one latest row exists per pair; it is created and advanced only
// by the refresher and atomically replaced, never edited in place.
// Readers either see the previous checkpoint or the new one, never a
// partial fold.
type BalanceCheckpoint struct {
	AccountID    string
	HostCurrency string
	Rank         Rank
	Balance      decimal.Decimal
	// AsOf is the CreatedAt of the last folded leg. It makes the
	// staleness window queryable so callers can decide between accepting
	// it and forcing a full scan.
	AsOf      time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
