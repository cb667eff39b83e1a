package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecordEventRequest represents an economic event submitted for
// classification into ledger legs. Amounts and the FX rate arrive
// pre-priced; the engine never calls a payment processor itself.
type RecordEventRequest struct {
	Kind            string          `json:"kind" validate:"required"`
	FromAccountID   string          `json:"from_account_id" validate:"required"`
	ToAccountID     string          `json:"to_account_id" validate:"required"`
	HostAccountID   string          `json:"host_account_id" validate:"required"`
	AccountCurrency string          `json:"account_currency" validate:"required,len=3"`
	HostCurrency    string          `json:"host_currency" validate:"required,len=3"`
	Amount          decimal.Decimal `json:"amount"`
	FxRate          decimal.Decimal `json:"fx_rate"`

	HostFee             decimal.Decimal `json:"host_fee"`
	ProcessorFee        decimal.Decimal `json:"processor_fee"`
	ProcessorFeeCovered bool            `json:"processor_fee_covered"`
	FeeVendorAccountID  string          `json:"fee_vendor_account_id,omitempty"`

	PlatformTip       decimal.Decimal `json:"platform_tip"`
	TipAsDebt         bool            `json:"tip_as_debt"`
	HostFeeShare      decimal.Decimal `json:"host_fee_share"`
	FeeShareAsDebt    bool            `json:"fee_share_as_debt"`
	PlatformAccountID string          `json:"platform_account_id,omitempty"`

	IsInternal bool       `json:"is_internal"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ClearedAt  *time.Time `json:"cleared_at,omitempty"`
}

// Validate checks structural constraints before classification.
func (r *RecordEventRequest) Validate() error {
	return validate.Struct(r)
}

// ToDomain converts to a domain raw event. A missing created_at means
// the event happened now.
func (r *RecordEventRequest) ToDomain() domain.RawEvent {
	createdAt := time.Now().UTC()
	if r.CreatedAt != nil {
		createdAt = r.CreatedAt.UTC()
	}

	fxRate := r.FxRate
	if fxRate.IsZero() {
		fxRate = decimal.NewFromInt(1)
	}

	return domain.RawEvent{
		CreatedAt:           createdAt,
		ClearedAt:           r.ClearedAt,
		Kind:                domain.Kind(r.Kind),
		FromAccountID:       r.FromAccountID,
		ToAccountID:         r.ToAccountID,
		HostAccountID:       r.HostAccountID,
		AccountCurrency:     r.AccountCurrency,
		HostCurrency:        r.HostCurrency,
		Amount:              r.Amount,
		FxRate:              fxRate,
		HostFee:             r.HostFee,
		ProcessorFee:        r.ProcessorFee,
		ProcessorFeeCovered: r.ProcessorFeeCovered,
		PlatformTip:         r.PlatformTip,
		TipAsDebt:           r.TipAsDebt,
		HostFeeShare:        r.HostFeeShare,
		FeeShareAsDebt:      r.FeeShareAsDebt,
		PlatformAccountID:   r.PlatformAccountID,
		FeeVendorAccountID:  r.FeeVendorAccountID,
		IsInternal:          r.IsInternal,
	}
}

// RecordGroupRequest represents a pre-classified set of legs to record
// as one transaction group. Producers that build their own double
// entries use this instead of event classification.
type RecordGroupRequest struct {
	Legs []LegItem `json:"legs" validate:"required,min=1,dive"`
}

// LegItem is a single leg in a group request.
type LegItem struct {
	AccountID     string `json:"account_id" validate:"required"`
	HostAccountID string `json:"host_account_id" validate:"required"`
	Direction     string `json:"direction" validate:"required,oneof=DEBIT CREDIT"`
	Kind          string `json:"kind" validate:"required"`

	AccountCurrency         string          `json:"account_currency" validate:"required,len=3"`
	HostCurrency            string          `json:"host_currency" validate:"required,len=3"`
	AmountInAccountCurrency decimal.Decimal `json:"amount_in_account_currency"`
	AmountInHostCurrency    decimal.Decimal `json:"amount_in_host_currency"`
	HostCurrencyFxRate      decimal.Decimal `json:"host_currency_fx_rate"`

	PlatformFeeInHostCurrency  decimal.Decimal `json:"platform_fee_in_host_currency"`
	HostFeeInHostCurrency      decimal.Decimal `json:"host_fee_in_host_currency"`
	ProcessorFeeInHostCurrency decimal.Decimal `json:"processor_fee_in_host_currency"`
	TaxAmount                  decimal.Decimal `json:"tax_amount"`

	IsDebt     bool `json:"is_debt"`
	IsDisputed bool `json:"is_disputed"`
	IsInternal bool `json:"is_internal"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	ClearedAt *time.Time `json:"cleared_at,omitempty"`
}

// Validate checks structural constraints on the group and its legs.
func (r *RecordGroupRequest) Validate() error {
	return validate.Struct(r)
}

// ToDomain converts the request legs to domain entries. IDs and the
// group ID are assigned by the use case.
func (r *RecordGroupRequest) ToDomain() []*domain.LedgerEntry {
	now := time.Now().UTC()

	legs := make([]*domain.LedgerEntry, len(r.Legs))
	for i, item := range r.Legs {
		createdAt := now
		if item.CreatedAt != nil {
			createdAt = item.CreatedAt.UTC()
		}

		fxRate := item.HostCurrencyFxRate
		if fxRate.IsZero() {
			fxRate = decimal.NewFromInt(1)
		}

		legs[i] = &domain.LedgerEntry{
			CreatedAt:                  createdAt,
			ClearedAt:                  item.ClearedAt,
			AccountID:                  item.AccountID,
			HostAccountID:              item.HostAccountID,
			Direction:                  domain.Direction(item.Direction),
			Kind:                       domain.Kind(item.Kind),
			AccountCurrency:            item.AccountCurrency,
			HostCurrency:               item.HostCurrency,
			AmountInAccountCurrency:    item.AmountInAccountCurrency,
			AmountInHostCurrency:       item.AmountInHostCurrency,
			HostCurrencyFxRate:         fxRate,
			PlatformFeeInHostCurrency:  item.PlatformFeeInHostCurrency,
			HostFeeInHostCurrency:      item.HostFeeInHostCurrency,
			ProcessorFeeInHostCurrency: item.ProcessorFeeInHostCurrency,
			TaxAmount:                  item.TaxAmount,
			IsDebt:                     item.IsDebt,
			IsDisputed:                 item.IsDisputed,
			IsInternal:                 item.IsInternal,
		}
	}

	return legs
}

// SettleDebtRequest marks a debt as paid off by a recorded cash group.
type SettleDebtRequest struct {
	GroupID           string `json:"group_id" validate:"required"`
	Kind              string `json:"kind,omitempty"`
	SettlementGroupID string `json:"settlement_group_id" validate:"required"`
}

// Validate checks structural constraints.
func (r *SettleDebtRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input.
func (r *SettleDebtRequest) ToUseCaseInput() usecase.SettleInput {
	return usecase.SettleInput{
		GroupID:           r.GroupID,
		Kind:              domain.Kind(r.Kind),
		SettlementGroupID: r.SettlementGroupID,
	}
}
