package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidPrice         = errors.New("price per share must be greater than zero")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidMonthKey      = errors.New("month or year out of range")
	ErrForbidden            = errors.New("caller may not access this resource")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrStoreUnavailable     = errors.New("store unavailable")
)
