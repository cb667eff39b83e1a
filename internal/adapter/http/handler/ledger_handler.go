package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hostledger/internal/adapter/http/dto"
	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	RecordEvent(ctx context.Context, ev domain.RawEvent) (string, error)
	RecordGroup(ctx context.Context, legs []*domain.LedgerEntry) (string, error)
	GetGroup(ctx context.Context, groupID string) ([]*domain.LedgerEntry, error)
	ReverseGroup(ctx context.Context, groupID string) (string, error)
	VoidEntry(ctx context.Context, id string) error
	ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	CheckConsistency(ctx context.Context) (bool, error)
}

// LedgerHandler handles transaction group and leg HTTP requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// RecordEvent classifies an economic event into legs and records them.
func (h *LedgerHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event", err.Error())
		return
	}

	groupID, err := h.ledgerUC.RecordEvent(r.Context(), req.ToDomain())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record event", err.Error())
		return
	}

	legs, err := h.ledgerUC.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load recorded group", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(groupID, legs))
}

// RecordGroup records a pre-classified set of legs as one group.
func (h *LedgerHandler) RecordGroup(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid group", err.Error())
		return
	}

	groupID, err := h.ledgerUC.RecordGroup(r.Context(), req.ToDomain())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record group", err.Error())
		return
	}

	legs, err := h.ledgerUC.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load recorded group", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(groupID, legs))
}

// GetGroup retrieves all legs of a transaction group.
func (h *LedgerHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group ID", "")
		return
	}

	legs, err := h.ledgerUC.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get group", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(groupID, legs))
}

// Reverse records a compensating group for an existing one.
func (h *LedgerHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group ID", "")
		return
	}

	reversalID, err := h.ledgerUC.ReverseGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse group", err.Error())
		return
	}

	legs, err := h.ledgerUC.GetGroup(r.Context(), reversalID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load reversal group", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(reversalID, legs))
}

// Void soft-deletes a single leg, excluding it from balance math.
func (h *LedgerHandler) Void(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	if err := h.ledgerUC.VoidEntry(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to void entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "voided", "id": id})
}

// ListByAccount lists an account's legs in ledger order.
func (h *LedgerHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.ledgerUC.ListEntriesByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// CheckConsistency verifies the ledger-wide zero-sum invariant.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	consistent, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"status":     "inconsistent",
				"consistent": false,
				"message":    err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "consistent",
		"consistent": consistent,
	})
}
