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

// SettlementService defines the behavior needed by SettlementHandler.
type SettlementService interface {
	Settle(ctx context.Context, input usecase.SettleInput) (*domain.Settlement, error)
	OutstandingDebts(ctx context.Context, hostAccountID string, limit, offset int) ([]*domain.Settlement, error)
	OverdueDebts(ctx context.Context, hostAccountID string) ([]*domain.Settlement, error)
}

// SettlementHandler handles debt settlement HTTP requests.
type SettlementHandler struct {
	settlementUC SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementUC SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementUC: settlementUC}
}

// Settle marks a debt as paid off by a recorded cash group.
func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settlement request", err.Error())
		return
	}

	settlement, err := h.settlementUC.Settle(r.Context(), req.ToUseCaseInput())
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAmbiguousSettlement):
			writeError(w, http.StatusBadRequest, "ambiguous settlement", err.Error())
		case errors.Is(err, usecase.ErrSettlementGroupMissing):
			writeError(w, http.StatusBadRequest, "settlement group not recorded", err.Error())
		default:
			writeError(w, mapDomainError(err), "failed to settle debt", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// ListDebts lists a host's OWED settlements. The overdue query flag
// restricts the listing to debts past their grace period.
func (h *SettlementHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	hostAccountID := chi.URLParam(r, "id")
	if hostAccountID == "" {
		writeError(w, http.StatusBadRequest, "missing host account ID", "")
		return
	}

	var (
		debts []*domain.Settlement
		err   error
	)

	if r.URL.Query().Get("overdue") == "true" {
		debts, err = h.settlementUC.OverdueDebts(r.Context(), hostAccountID)
	} else {
		limit := parseIntQuery(r, "limit", 50)
		offset := parseIntQuery(r, "offset", 0)
		debts, err = h.settlementUC.OutstandingDebts(r.Context(), hostAccountID, limit, offset)
	}

	if err != nil {
		writeError(w, mapDomainError(err), "failed to list debts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementsFromDomain(debts))
}
