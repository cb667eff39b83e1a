package handler

import (
	"net/http"

	"github.com/iho/hostledger/internal/infrastructure/refresher"
)

// RefreshStatusSource reports the checkpoint refresher's state.
// It is satisfied by refresher.Refresher.
type RefreshStatusSource interface {
	Status() refresher.Status
}

// RefreshStatusHandler exposes the refresher's sweep and per-pair
// outcomes for monitoring.
type RefreshStatusHandler struct {
	source RefreshStatusSource
}

// NewRefreshStatusHandler creates a new RefreshStatusHandler.
func NewRefreshStatusHandler(source RefreshStatusSource) *RefreshStatusHandler {
	return &RefreshStatusHandler{source: source}
}

// Get returns the current refresh status.
func (h *RefreshStatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Status())
}
