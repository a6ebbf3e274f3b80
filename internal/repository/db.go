package repository

import (
	"errors"
	"fmt"

	"github.com/umoja-coop/shares-api/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// wrapStoreErr tags a driver/network failure so callers can distinguish an
// unreachable store (retryable, 5xx) from domain outcomes. The original error
// stays in the chain for logs.
func wrapStoreErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStoreUnavailable, err))
}
