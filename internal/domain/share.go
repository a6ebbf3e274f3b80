package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodSkrill       PaymentMethod = "skrill"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodPaypal, PaymentMethodBankTransfer, PaymentMethodSkrill,
		PaymentMethodCash, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// SharePurchase is one row of the ledger. Rows are insert-only: no operation
// updates or deletes them, so the stored Month bucket cannot drift from
// PurchaseDate after the fact.
type SharePurchase struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Quantity      decimal.Decimal
	PricePerShare decimal.Decimal
	TotalAmount   decimal.Decimal
	PaymentMethod PaymentMethod
	PurchaseDate  time.Time
	Month         string
	Notes         *string
	RecordedBy    uuid.UUID
	CreatedAt     time.Time
}

// PurchaseWithMember is a ledger row joined with the purchasing member's
// directory details, for admin-facing listings.
type PurchaseWithMember struct {
	SharePurchase
	MemberName  string
	MemberEmail string
}

// MonthKey projects a timestamp onto its YYYY-MM bucket. Buckets are always
// derived in UTC; mixing zones shifts purchases across month boundaries.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

const minBucketYear = 2000

// BuildMonthKey constructs the zero-padded YYYY-MM key for a caller-supplied
// month and year, using the same formatting as MonthKey so lookups always
// match stored buckets.
func BuildMonthKey(month, year int) (string, error) {
	if month < 1 || month > 12 {
		return "", ErrInvalidMonthKey
	}
	if year < minBucketYear || year > time.Now().UTC().Year()+1 {
		return "", ErrInvalidMonthKey
	}
	return MonthKey(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)), nil
}

// ComputeTotalAmount derives the purchase total as quantity * pricePerShare
// rounded half-up to 2 decimal places.
func ComputeTotalAmount(quantity, pricePerShare decimal.Decimal) decimal.Decimal {
	return quantity.Mul(pricePerShare).Round(2)
}
