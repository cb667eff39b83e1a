package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hostledger/internal/adapter/http/dto"
	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	CurrentBalance(ctx context.Context, accountID string, opts usecase.BalanceOptions) (*domain.Balance, error)
}

// BalanceHandler handles balance read requests.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Get resolves an account's available and disputed balances. The fresh
// query flag forces an exact full scan past the cache and checkpoint.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	opts := usecase.BalanceOptions{
		Fresh: r.URL.Query().Get("fresh") == "true",
	}

	balance, err := h.balanceUC.CurrentBalance(r.Context(), accountID, opts)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to resolve balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}
