package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/hostledger/internal/domain"
)

// EntryResponse represents a ledger leg in API responses.
type EntryResponse struct {
	ID            string `json:"id"`
	GroupID       string `json:"group_id"`
	AccountID     string `json:"account_id"`
	HostAccountID string `json:"host_account_id"`
	Direction     string `json:"direction"`
	Kind          string `json:"kind"`

	AccountCurrency         string          `json:"account_currency"`
	HostCurrency            string          `json:"host_currency"`
	AmountInAccountCurrency decimal.Decimal `json:"amount_in_account_currency"`
	AmountInHostCurrency    decimal.Decimal `json:"amount_in_host_currency"`
	HostCurrencyFxRate      decimal.Decimal `json:"host_currency_fx_rate"`
	NetAmount               decimal.Decimal `json:"net_amount"`

	PlatformFeeInHostCurrency  decimal.Decimal `json:"platform_fee_in_host_currency"`
	HostFeeInHostCurrency      decimal.Decimal `json:"host_fee_in_host_currency"`
	ProcessorFeeInHostCurrency decimal.Decimal `json:"processor_fee_in_host_currency"`
	TaxAmount                  decimal.Decimal `json:"tax_amount"`

	IsRefund     bool    `json:"is_refund"`
	IsDebt       bool    `json:"is_debt"`
	IsDisputed   bool    `json:"is_disputed"`
	IsInternal   bool    `json:"is_internal"`
	ReversalOfID *string `json:"reversal_of_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	ClearedAt *time.Time `json:"cleared_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// EntryFromDomain converts a domain leg to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:                         e.ID,
		GroupID:                    e.GroupID,
		AccountID:                  e.AccountID,
		HostAccountID:              e.HostAccountID,
		Direction:                  string(e.Direction),
		Kind:                       string(e.Kind),
		AccountCurrency:            e.AccountCurrency,
		HostCurrency:               e.HostCurrency,
		AmountInAccountCurrency:    e.AmountInAccountCurrency,
		AmountInHostCurrency:       e.AmountInHostCurrency,
		HostCurrencyFxRate:         e.HostCurrencyFxRate,
		NetAmount:                  e.NetAmount(),
		PlatformFeeInHostCurrency:  e.PlatformFeeInHostCurrency,
		HostFeeInHostCurrency:      e.HostFeeInHostCurrency,
		ProcessorFeeInHostCurrency: e.ProcessorFeeInHostCurrency,
		TaxAmount:                  e.TaxAmount,
		IsRefund:                   e.IsRefund,
		IsDebt:                     e.IsDebt,
		IsDisputed:                 e.IsDisputed,
		IsInternal:                 e.IsInternal,
		ReversalOfID:               e.ReversalOfID,
		CreatedAt:                  e.CreatedAt,
		ClearedAt:                  e.ClearedAt,
		DeletedAt:                  e.DeletedAt,
	}
}

// EntriesFromDomain converts domain legs to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// GroupResponse represents a transaction group in API responses.
type GroupResponse struct {
	GroupID string           `json:"group_id"`
	Legs    []*EntryResponse `json:"legs"`
}

// GroupFromDomain converts a group's legs to a response.
func GroupFromDomain(groupID string, legs []*domain.LedgerEntry) *GroupResponse {
	return &GroupResponse{
		GroupID: groupID,
		Legs:    EntriesFromDomain(legs),
	}
}

// BalanceResponse represents a resolved balance in API responses.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Disputed  decimal.Decimal `json:"disputed"`
	AsOf      *time.Time      `json:"as_of,omitempty"`
	Source    string          `json:"source"`
}

// BalanceFromDomain converts a domain balance to a response. Full scans
// carry no as_of; they are exact as of read time.
func BalanceFromDomain(b *domain.Balance) *BalanceResponse {
	resp := &BalanceResponse{
		AccountID: b.AccountID,
		Currency:  b.Currency,
		Available: b.Available,
		Disputed:  b.Disputed,
		Source:    string(b.Source),
	}
	if !b.AsOf.IsZero() {
		asOf := b.AsOf
		resp.AsOf = &asOf
	}
	return resp
}

// SettlementResponse represents a debt obligation in API responses.
type SettlementResponse struct {
	ID                string          `json:"id"`
	GroupID           string          `json:"group_id"`
	Kind              string          `json:"kind"`
	HostAccountID     string          `json:"host_account_id"`
	HostCurrency      string          `json:"host_currency"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	SettlementGroupID *string         `json:"settlement_group_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
}

// SettlementFromDomain converts a domain settlement to a response.
func SettlementFromDomain(s *domain.Settlement) *SettlementResponse {
	return &SettlementResponse{
		ID:                s.ID,
		GroupID:           s.GroupID,
		Kind:              string(s.Kind),
		HostAccountID:     s.HostAccountID,
		HostCurrency:      s.HostCurrency,
		Amount:            s.Amount,
		Status:            string(s.Status),
		SettlementGroupID: s.SettlementGroupID,
		CreatedAt:         s.CreatedAt,
		SettledAt:         s.SettledAt,
	}
}

// SettlementsFromDomain converts domain settlements to responses.
func SettlementsFromDomain(settlements []*domain.Settlement) []*SettlementResponse {
	result := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		result[i] = SettlementFromDomain(s)
	}
	return result
}

// CheckpointResponse represents a balance checkpoint in API responses.
type CheckpointResponse struct {
	AccountID    string          `json:"account_id"`
	HostCurrency string          `json:"host_currency"`
	Balance      decimal.Decimal `json:"balance"`
	TimeBucket   int64           `json:"time_bucket"`
	LastEntryID  string          `json:"last_entry_id"`
	AsOf         time.Time       `json:"as_of"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CheckpointFromDomain converts a domain checkpoint to a response.
func CheckpointFromDomain(cp *domain.BalanceCheckpoint) *CheckpointResponse {
	return &CheckpointResponse{
		AccountID:    cp.AccountID,
		HostCurrency: cp.HostCurrency,
		Balance:      cp.Balance,
		TimeBucket:   cp.Rank.TimeBucket,
		LastEntryID:  cp.Rank.EntryID,
		AsOf:         cp.AsOf,
		UpdatedAt:    cp.UpdatedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
