package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/hostledger/internal/adapter/http/dto"
	"github.com/iho/hostledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	var unbalanced *domain.UnbalancedGroupError
	var inconsistent *domain.CurrencyConsistencyError
	var unavailable *domain.BalanceUnavailableError
	var conflict *domain.RefreshConflictError

	switch {
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrCheckpointNotFound),
		errors.Is(err, domain.ErrSettlementNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyReversed),
		errors.Is(err, domain.ErrReversalOfReversal),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrEntryDeleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidFxRate),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrEmptyGroup),
		errors.Is(err, domain.ErrMixedGroup),
		errors.Is(err, domain.ErrMissingAccount),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrDirectionSignMismatch),
		errors.Is(err, domain.ErrKindNotDebtEligible),
		errors.Is(err, domain.ErrUnknownEventKind),
		errors.Is(err, domain.ErrMissingPlatformAccount),
		errors.Is(err, domain.ErrMissingFeeVendor):
		return http.StatusBadRequest
	case errors.As(err, &unbalanced):
		return http.StatusBadRequest
	case errors.As(err, &inconsistent), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
