package domain

import (
	"github.com/shopspring/decimal"
)

// DefaultNetTolerance is the bounded FX-rounding residue a group may
// carry, per leg, in host-currency units.
var DefaultNetTolerance = decimal.RequireFromString("0.01")

// GroupNet returns the sum of AmountInHostCurrency over the group's
// countable legs. For a balanced economic transfer this is zero modulo
// FX rounding.
func GroupNet(legs []*LedgerEntry) decimal.Decimal {
	net := decimal.Zero
	for _, leg := range legs {
		if !leg.Countable() {
			continue
		}

		net = net.Add(leg.AmountInHostCurrency)
	}

	return net
}

// ValidateGroup enforces the double-entry invariant over a leg set about
// to be persisted: every leg valid on its own, all legs on one group id,
// and the host-currency amounts netting to zero within tolerance. Any
// residue within tolerance must be attributable to a fee leg; residue on
// a group with no fee leg is a data-integrity defect, not rounding.
func ValidateGroup(legs []*LedgerEntry, tolerance decimal.Decimal) error {
	if len(legs) == 0 {
		return ErrEmptyGroup
	}

	if len(legs) > MaxGroupLegs {
		return ErrGroupTooLarge
	}

	groupID := legs[0].GroupID
	hasFeeLeg := false

	for _, leg := range legs {
		if leg.GroupID != groupID {
			return ErrMixedGroup
		}

		if err := leg.Validate(); err != nil {
			return err
		}

		if leg.Kind.Traits().Fee {
			hasFeeLeg = true
		}
	}

	residue := GroupNet(legs).Abs()
	if residue.IsZero() {
		return nil
	}

	allowed := tolerance.Mul(decimal.NewFromInt(int64(len(legs))))
	if residue.GreaterThan(allowed) || !hasFeeLeg {
		return &UnbalancedGroupError{
			GroupID:   groupID,
			Residue:   residue,
			Tolerance: allowed,
		}
	}

	return nil
}
