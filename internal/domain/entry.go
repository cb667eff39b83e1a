package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks which side of a double entry a leg sits on.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// LedgerEntry is a single leg of a transaction group. Legs are append-only:
// once a group has passed validation the only permitted mutations are
// setting DeletedAt (void) and creating new legs that reference this one
// via ReversalOfID (refund). Amount fields are never edited.
type LedgerEntry struct {
	CreatedAt time.Time
	ClearedAt *time.Time
	DeletedAt *time.Time

	ID            string
	GroupID       string
	AccountID     string
	HostAccountID string
	Direction     Direction
	Kind          Kind

	// Amounts. AmountInHostCurrency is the figure balances are summed over;
	// the fee sub-amounts carry legacy rows where fees were embedded in the
	// principal leg instead of written as separate fee legs. Embedded fees
	// are stored negative.
	AccountCurrency               string
	HostCurrency                  string
	AmountInAccountCurrency       decimal.Decimal
	AmountInHostCurrency          decimal.Decimal
	HostCurrencyFxRate            decimal.Decimal
	PlatformFeeInHostCurrency     decimal.Decimal
	HostFeeInHostCurrency         decimal.Decimal
	ProcessorFeeInHostCurrency    decimal.Decimal
	TaxAmount                     decimal.Decimal

	IsRefund   bool
	IsDebt     bool
	IsDisputed bool
	IsInternal bool

	// ReversalOfID points at the leg this one reverses. It is set on the
	// reversing leg at insert time and never forms a chain: a leg with
	// ReversalOfID set cannot itself be reversed.
	ReversalOfID *string
}

// NetAmount is the leg's contribution to its account's host-currency
// balance: the principal amount plus any embedded fee sub-amounts.
// TaxAmount is informational and already included in the principal.
func (e *LedgerEntry) NetAmount() decimal.Decimal {
	return e.AmountInHostCurrency.
		Add(e.PlatformFeeInHostCurrency).
		Add(e.HostFeeInHostCurrency).
		Add(e.ProcessorFeeInHostCurrency)
}

// Countable reports whether the leg participates in balance math.
// Soft-deleted legs are retained for audit but excluded everywhere.
func (e *LedgerEntry) Countable() bool {
	return e.DeletedAt == nil
}

// IsReversal reports whether this leg reverses another one.
func (e *LedgerEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}

// InDispute reports whether this leg's amount is at risk. A disputed
// leg that is itself a reversal resolves a dispute rather than opening
// one, so it counts as available.
func (e *LedgerEntry) InDispute() bool {
	return e.IsDisputed && !e.IsReversal()
}

// Validate checks leg-level invariants. Group-level invariants (net-zero)
// are checked by ValidateGroup.
func (e *LedgerEntry) Validate() error {
	if e.AccountID == "" || e.HostAccountID == "" {
		return ErrMissingAccount
	}

	if e.Direction != Debit && e.Direction != Credit {
		return ErrInvalidDirection
	}

	if e.Direction == Debit && e.AmountInHostCurrency.IsPositive() {
		return ErrDirectionSignMismatch
	}

	if e.Direction == Credit && e.AmountInHostCurrency.IsNegative() {
		return ErrDirectionSignMismatch
	}

	if e.IsDebt && !e.Kind.Traits().DebtEligible {
		return ErrKindNotDebtEligible
	}

	if err := ValidateCurrency(e.HostCurrency); err != nil {
		return err
	}

	return nil
}
