package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "You may not access this resource"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrMemberNotFound       = &AppError{http.StatusNotFound, "MEMBER_NOT_FOUND", "Member not found or not eligible to own shares"}
	ErrInvalidQuantity      = &AppError{http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be at least 1"}
	ErrInvalidPrice         = &AppError{http.StatusBadRequest, "INVALID_PRICE", "Price per share must be greater than zero"}
	ErrInvalidPaymentMethod = &AppError{http.StatusBadRequest, "INVALID_PAYMENT_METHOD", "Unsupported payment method"}
	ErrInvalidMonthKey      = &AppError{http.StatusBadRequest, "INVALID_MONTH", "Month or year out of range"}
	ErrInvalidRole          = &AppError{http.StatusBadRequest, "INVALID_ROLE", "Role must be admin or member"}
	ErrEmailTaken           = &AppError{http.StatusConflict, "EMAIL_TAKEN", "Email already registered"}
	ErrStoreUnavailable     = &AppError{http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage temporarily unavailable, retry later"}
)
