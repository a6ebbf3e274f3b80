package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/umoja-coop/shares-api/internal/domain"
)

// APIResponse is the envelope for every endpoint. List endpoints carry a
// count, and the member self-shares endpoint additionally carries the summed
// share total at the top level.
type APIResponse struct {
	Success     bool             `json:"success"`
	Count       *int             `json:"count,omitempty"`
	TotalShares *decimal.Decimal `json:"totalShares,omitempty"`
	Data        any              `json:"data"`
	Error       *APIError        `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
	})
}

func RespondList(w http.ResponseWriter, status int, count int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Count:   &count,
		Data:    data,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		appErr = ErrMemberNotFound
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrForbidden):
		appErr = ErrForbidden
	case errors.Is(err, domain.ErrInvalidQuantity):
		appErr = ErrInvalidQuantity
	case errors.Is(err, domain.ErrInvalidPrice):
		appErr = ErrInvalidPrice
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		appErr = ErrInvalidPaymentMethod
	case errors.Is(err, domain.ErrInvalidMonthKey):
		appErr = ErrInvalidMonthKey
	case errors.Is(err, domain.ErrInvalidRole):
		appErr = ErrInvalidRole
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	case errors.Is(err, domain.ErrEmailTaken):
		appErr = ErrEmailTaken
	case errors.Is(err, domain.ErrStoreUnavailable):
		appErr = ErrStoreUnavailable
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
