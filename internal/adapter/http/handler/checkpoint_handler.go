package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hostledger/internal/adapter/http/dto"
	"github.com/iho/hostledger/internal/domain"
)

// CheckpointService defines the behavior needed by CheckpointHandler.
type CheckpointService interface {
	Advance(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error)
	GetLatest(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error)
}

// CheckpointHandler handles balance checkpoint HTTP requests.
type CheckpointHandler struct {
	checkpointUC CheckpointService
}

// NewCheckpointHandler creates a new CheckpointHandler.
func NewCheckpointHandler(checkpointUC CheckpointService) *CheckpointHandler {
	return &CheckpointHandler{checkpointUC: checkpointUC}
}

// Refresh folds the account's stable legs into a new checkpoint.
func (h *CheckpointHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	currency := r.URL.Query().Get("currency")
	if currency == "" {
		writeError(w, http.StatusBadRequest, "missing currency parameter", "")
		return
	}

	cp, err := h.checkpointUC.Advance(r.Context(), accountID, currency)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to refresh checkpoint", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckpointFromDomain(cp))
}

// Get retrieves the latest checkpoint for an account and currency.
func (h *CheckpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	currency := r.URL.Query().Get("currency")
	if currency == "" {
		writeError(w, http.StatusBadRequest, "missing currency parameter", "")
		return
	}

	cp, err := h.checkpointUC.GetLatest(r.Context(), accountID, currency)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get checkpoint", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckpointFromDomain(cp))
}
