package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Leg/group validation
	ErrMissingAccount        = errors.New("leg is missing account or host account")
	ErrInvalidDirection      = errors.New("direction must be DEBIT or CREDIT")
	ErrDirectionSignMismatch = errors.New("amount sign does not match direction")
	ErrKindNotDebtEligible   = errors.New("kind cannot be written as a debt")
	ErrEmptyGroup            = errors.New("group has no legs")
	ErrGroupTooLarge         = errors.New("group exceeds the maximum number of legs")
	ErrMixedGroup            = errors.New("legs of a group must share one group id")

	// Lookups
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrGroupNotFound      = errors.New("transaction group not found")
	ErrCheckpointNotFound = errors.New("balance checkpoint not found")
	ErrSettlementNotFound = errors.New("settlement not found")

	// Lifecycle
	ErrEntryDeleted      = errors.New("ledger entry is already deleted")
	ErrAlreadyReversed   = errors.New("leg has already been reversed")
	ErrReversalOfReversal = errors.New("a reversal leg cannot be reversed")
	ErrAlreadySettled    = errors.New("settlement has already been recorded")
)

// UnbalancedGroupError reports a leg set that does not net to zero in
// host currency beyond tolerance. It is fatal to the write: it indicates
// a producer bug, never something to retry.
type UnbalancedGroupError struct {
	GroupID  string
	Residue  decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *UnbalancedGroupError) Error() string {
	return fmt.Sprintf("group %s does not balance: residue %s exceeds tolerance %s",
		e.GroupID, e.Residue.String(), e.Tolerance.String())
}

// CurrencyConsistencyError reports an account whose legs span more than
// one host currency or host without a recognized host-switch boundary.
// Balances for such accounts fall back to a full scan and the condition
// is flagged for investigation.
type CurrencyConsistencyError struct {
	AccountID      string
	HostCurrencies []string
	HostAccounts   []string
}

func (e *CurrencyConsistencyError) Error() string {
	return fmt.Sprintf("account %s spans %d host currencies and %d hosts; checkpoint unusable",
		e.AccountID, len(e.HostCurrencies), len(e.HostAccounts))
}

// BalanceUnavailableError reports that the full-scan fallback exceeded
// its size or time budget. Callers may retry on a backoff; the engine
// does not retry automatically.
type BalanceUnavailableError struct {
	AccountID string
	Reason    string
}

func (e *BalanceUnavailableError) Error() string {
	return fmt.Sprintf("balance for account %s unavailable: %s", e.AccountID, e.Reason)
}

// RefreshConflictError reports two checkpoint refreshes racing for the
// same account-currency pair. The refresher re-reads and retries once,
// then fails loudly; a fold is never applied twice.
type RefreshConflictError struct {
	AccountID    string
	HostCurrency string
}

func (e *RefreshConflictError) Error() string {
	return fmt.Sprintf("checkpoint refresh conflict for account %s (%s)", e.AccountID, e.HostCurrency)
}
