package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSource records which read path produced a balance.
type BalanceSource string

const (
	// BalanceFromCheckpoint means checkpoint + delta.
	BalanceFromCheckpoint BalanceSource = "checkpoint"
	// BalanceFromFullScan means the fallback scan from epoch was used.
	BalanceFromFullScan BalanceSource = "full_scan"
)

// Balance is the resolved state of an account. Available excludes
// disputed legs; Disputed is the amount at risk of chargeback, reported
// separately so payout checks can distinguish spendable funds from funds
// at risk.
type Balance struct {
	AccountID string
	Currency  string
	Available decimal.Decimal
	Disputed  decimal.Decimal
	// AsOf is the checkpoint timestamp the read was anchored on; zero for
	// full scans, which are exact as of read time.
	AsOf   time.Time
	Source BalanceSource
}
