package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RawEvent is an economic event submitted by a producer (a payment
// processor adapter, an expense payout, a manual fund addition). The
// engine never calls out to a processor itself; amounts, fees and the FX
// rate arrive pre-priced.
type RawEvent struct {
	CreatedAt time.Time
	ClearedAt *time.Time

	// Kind of the principal leg pair: CONTRIBUTION, EXPENSE, ADDED_FUNDS,
	// BALANCE_TRANSFER or PREPAID_PAYMENT_METHOD.
	Kind Kind

	FromAccountID string
	ToAccountID   string
	HostAccountID string

	AccountCurrency string
	HostCurrency    string
	// Amount is in account currency; FxRate converts to host currency.
	Amount decimal.Decimal
	FxRate decimal.Decimal

	// Fees, all in host currency, all non-negative.
	HostFee      decimal.Decimal
	ProcessorFee decimal.Decimal
	// ProcessorFeeCovered emits a PAYMENT_PROCESSOR_COVER pair refunding
	// the fee to the receiving account at the host's expense.
	ProcessorFeeCovered bool

	// PlatformTip and HostFeeShare go to the platform account. When the
	// matching AsDebt flag is set the cash has not moved yet: the legs are
	// written as *_DEBT kinds and a settlement obligation is recorded.
	PlatformTip       decimal.Decimal
	TipAsDebt         bool
	HostFeeShare      decimal.Decimal
	FeeShareAsDebt    bool
	PlatformAccountID string

	// FeeVendorAccountID receives payment processor fees.
	FeeVendorAccountID string

	IsInternal bool
}

var (
	ErrUnknownEventKind      = errors.New("event kind is not a principal kind")
	ErrMissingPlatformAccount = errors.New("event carries a tip or fee share but no platform account")
	ErrMissingFeeVendor      = errors.New("event carries a processor fee but no fee vendor account")
)

func principalKind(k Kind) bool {
	switch k {
	case KindContribution, KindExpense, KindAddedFunds, KindBalanceTransfer, KindPrepaidPaymentMethod:
		return true
	default:
		return false
	}
}

// Classify turns a raw economic event into the complete, balanced set of
// legs for one group. Every leg set it produces passes ValidateGroup:
// all money movement is expressed as DEBIT/CREDIT pairs, including debts
// (flagged IsDebt, settled later through the settlement tracker).
// IDs are left empty for the write path to assign.
func Classify(ev RawEvent, groupID string) ([]*LedgerEntry, error) {
	if !principalKind(ev.Kind) {
		return nil, ErrUnknownEventKind
	}

	if ev.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	if (ev.PlatformTip.IsPositive() || ev.HostFeeShare.IsPositive()) && ev.PlatformAccountID == "" {
		return nil, ErrMissingPlatformAccount
	}

	if ev.ProcessorFee.IsPositive() && ev.FeeVendorAccountID == "" {
		return nil, ErrMissingFeeVendor
	}

	hostAmount := ev.Amount.Mul(ev.FxRate).Round(2)

	c := classifier{ev: ev, groupID: groupID}

	// Principal pair.
	c.pair(ev.Kind, ev.FromAccountID, ev.ToAccountID, ev.Amount, hostAmount, false)

	// Fees are borne by the receiving account for incoming money and by
	// the paying account for expenses.
	feeBearer := ev.ToAccountID
	if ev.Kind == KindExpense {
		feeBearer = ev.FromAccountID
	}

	if ev.HostFee.IsPositive() {
		c.hostPair(KindHostFee, feeBearer, ev.HostAccountID, ev.HostFee, false)
	}

	if ev.ProcessorFee.IsPositive() {
		c.hostPair(KindPaymentProcessorFee, feeBearer, ev.FeeVendorAccountID, ev.ProcessorFee, false)

		if ev.ProcessorFeeCovered {
			c.hostPair(KindPaymentProcessorCover, ev.HostAccountID, feeBearer, ev.ProcessorFee, false)
		}
	}

	if ev.PlatformTip.IsPositive() {
		if ev.TipAsDebt {
			// Cash not collected yet: the host owes the platform.
			c.hostPair(KindPlatformTipDebt, ev.HostAccountID, ev.PlatformAccountID, ev.PlatformTip, true)
		} else {
			c.hostPair(KindPlatformTip, ev.FromAccountID, ev.PlatformAccountID, ev.PlatformTip, false)
		}
	}

	if ev.HostFeeShare.IsPositive() {
		kind, debt := KindHostFeeShare, false
		if ev.FeeShareAsDebt {
			kind, debt = KindHostFeeShareDebt, true
		}

		c.hostPair(kind, ev.HostAccountID, ev.PlatformAccountID, ev.HostFeeShare, debt)
	}

	return c.legs, nil
}

type classifier struct {
	ev      RawEvent
	groupID string
	legs    []*LedgerEntry
}

// pair emits a DEBIT/CREDIT pair moving amount from debited to credited.
func (c *classifier) pair(kind Kind, debited, credited string, accountAmount, hostAmount decimal.Decimal, debt bool) {
	c.legs = append(c.legs,
		c.leg(kind, debited, Debit, accountAmount.Neg(), hostAmount.Neg(), debt),
		c.leg(kind, credited, Credit, accountAmount, hostAmount, debt),
	)
}

// hostPair emits a pair denominated in host currency on both sides.
func (c *classifier) hostPair(kind Kind, debited, credited string, hostAmount decimal.Decimal, debt bool) {
	c.pair(kind, debited, credited, hostAmount, hostAmount, debt)
}

func (c *classifier) leg(kind Kind, accountID string, dir Direction, accountAmount, hostAmount decimal.Decimal, debt bool) *LedgerEntry {
	return &LedgerEntry{
		GroupID:                 c.groupID,
		AccountID:               accountID,
		HostAccountID:           c.ev.HostAccountID,
		Direction:               dir,
		Kind:                    kind,
		AccountCurrency:         c.ev.AccountCurrency,
		HostCurrency:            c.ev.HostCurrency,
		AmountInAccountCurrency: accountAmount,
		AmountInHostCurrency:    hostAmount,
		HostCurrencyFxRate:      c.ev.FxRate,
		IsDebt:                  debt,
		IsInternal:              c.ev.IsInternal,
		CreatedAt:               c.ev.CreatedAt,
		ClearedAt:               c.ev.ClearedAt,
	}
}
