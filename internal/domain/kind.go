package domain

// Kind classifies a ledger leg. The set is open: producers occasionally
// introduce new kinds, so unknown values are carried through as
// KindUnknown traits rather than rejected at the type level.
type Kind string

const (
	KindContribution         Kind = "CONTRIBUTION"
	KindAddedFunds           Kind = "ADDED_FUNDS"
	KindBalanceTransfer      Kind = "BALANCE_TRANSFER"
	KindExpense              Kind = "EXPENSE"
	KindHostFee              Kind = "HOST_FEE"
	KindHostFeeShare         Kind = "HOST_FEE_SHARE"
	KindHostFeeShareDebt     Kind = "HOST_FEE_SHARE_DEBT"
	KindPaymentProcessorFee  Kind = "PAYMENT_PROCESSOR_FEE"
	KindPaymentProcessorCover Kind = "PAYMENT_PROCESSOR_COVER"
	KindPlatformFee          Kind = "PLATFORM_FEE"
	KindPlatformTip          Kind = "PLATFORM_TIP"
	KindPlatformTipDebt      Kind = "PLATFORM_TIP_DEBT"
	KindPrepaidPaymentMethod Kind = "PREPAID_PAYMENT_METHOD"
)

// KindTraits is kind-specific behavior kept in one table instead of
// conditionals scattered through the aggregation code.
type KindTraits struct {
	// Priority orders legs of the same group within a time bucket:
	// principal legs first, then fees, then tips and debts. Lower sorts
	// earlier.
	Priority int
	// DebtEligible kinds may be written with IsDebt set, creating a
	// settlement obligation instead of moving cash.
	DebtEligible bool
	// Fee kinds may absorb the bounded FX-rounding residue of their group.
	Fee bool
}

var kindTraits = map[Kind]KindTraits{
	KindContribution:          {Priority: 0},
	KindAddedFunds:            {Priority: 0},
	KindBalanceTransfer:       {Priority: 0},
	KindExpense:               {Priority: 0},
	KindPrepaidPaymentMethod:  {Priority: 0},
	KindPaymentProcessorFee:   {Priority: 1, Fee: true},
	KindPaymentProcessorCover: {Priority: 1},
	KindHostFee:               {Priority: 2, Fee: true},
	KindHostFeeShare:          {Priority: 3, Fee: true, DebtEligible: true},
	KindPlatformFee:           {Priority: 4, Fee: true},
	KindPlatformTip:           {Priority: 5, DebtEligible: true},
	KindHostFeeShareDebt:      {Priority: 6, DebtEligible: true},
	KindPlatformTipDebt:       {Priority: 6, DebtEligible: true},
}

// unknownKindTraits sorts after every known kind so that legacy or
// not-yet-mapped kinds never displace a known leg in the fold order.
var unknownKindTraits = KindTraits{Priority: 99}

// Traits returns the behavior table entry for the kind, falling back to
// unknown-kind traits for values this build does not know about.
func (k Kind) Traits() KindTraits {
	if t, ok := kindTraits[k]; ok {
		return t
	}

	return unknownKindTraits
}

// Known reports whether the kind is part of the mapped taxonomy.
func (k Kind) Known() bool {
	_, ok := kindTraits[k]
	return ok
}

// DebtKind maps a debt-eligible kind to its *_DEBT variant, used when the
// cash has not moved yet and an obligation is recorded instead.
func (k Kind) DebtKind() (Kind, bool) {
	switch k {
	case KindPlatformTip:
		return KindPlatformTipDebt, true
	case KindHostFeeShare:
		return KindHostFeeShareDebt, true
	default:
		return "", false
	}
}
