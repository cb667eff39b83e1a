package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle of a debt obligation.
type SettlementStatus string

const (
	SettlementOwed    SettlementStatus = "OWED"
	SettlementSettled SettlementStatus = "SETTLED"
)

// Settlement links a debt leg (an IOU between a host and the platform,
// e.g. a platform tip whose cash has not moved yet) to its eventual cash
// settlement. One settlement exists per (group, kind); it transitions
// OWED -> SETTLED exactly once. Debts past their grace period are
// surfaced for manual reconciliation, never written off automatically.
type Settlement struct {
	CreatedAt time.Time
	SettledAt *time.Time

	ID            string
	GroupID       string
	Kind          Kind
	HostAccountID string
	HostCurrency  string
	Amount        decimal.Decimal
	Status        SettlementStatus

	// SettlementGroupID references the cash-movement group that paid the
	// debt off, once recorded.
	SettlementGroupID *string
}

// Overdue reports whether an OWED settlement has breached the grace
// period as of now.
func (s *Settlement) Overdue(now time.Time, grace time.Duration) bool {
	return s.Status == SettlementOwed && now.Sub(s.CreatedAt) > grace
}
