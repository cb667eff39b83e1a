package domain

import "time"

// Event types
const (
	EventTypeGroupRecorded      = "ledger.group.recorded"
	EventTypeGroupReversed      = "ledger.group.reversed"
	EventTypeEntryVoided        = "ledger.entry.voided"
	EventTypeCheckpointAdvanced = "ledger.checkpoint.advanced"
	EventTypeDebtRecorded       = "settlement.debt.recorded"
	EventTypeDebtSettled        = "settlement.debt.settled"
)

// Aggregate types
const (
	AggregateTypeGroup      = "group"
	AggregateTypeCheckpoint = "checkpoint"
	AggregateTypeSettlement = "settlement"
)

// OutboxEvent represents an event to be published. It is written in the
// same transaction as the ledger rows it describes and drained by the
// background publisher.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// GroupRecordedEvent payload
type GroupRecordedEvent struct {
	GroupID      string `json:"group_id"`
	LegCount     int    `json:"leg_count"`
	HostCurrency string `json:"host_currency"`
	Kind         string `json:"kind"`
}

// GroupReversedEvent payload
type GroupReversedEvent struct {
	ReversalGroupID string `json:"reversal_group_id"`
	OriginalGroupID string `json:"original_group_id"`
}

// CheckpointAdvancedEvent payload
type CheckpointAdvancedEvent struct {
	AccountID    string `json:"account_id"`
	HostCurrency string `json:"host_currency"`
	Balance      string `json:"balance"`
	AsOf         string `json:"as_of"`
}

// DebtRecordedEvent payload
type DebtRecordedEvent struct {
	SettlementID  string `json:"settlement_id"`
	GroupID       string `json:"group_id"`
	HostAccountID string `json:"host_account_id"`
	Kind          string `json:"kind"`
	Amount        string `json:"amount"`
}

// DebtSettledEvent payload
type DebtSettledEvent struct {
	SettlementID      string `json:"settlement_id"`
	GroupID           string `json:"group_id"`
	SettlementGroupID string `json:"settlement_group_id"`
}
