package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/umoja-coop/shares-api/internal/domain"
	"github.com/umoja-coop/shares-api/internal/logging"
)

type purchaseWriter interface {
	Create(ctx context.Context, p *domain.SharePurchase) error
}

type memberChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
}

// LedgerService validates purchase intents and appends them to the ledger.
type LedgerService struct {
	purchases purchaseWriter
	members   memberChecker
}

func NewLedgerService(purchases purchaseWriter, members memberChecker) *LedgerService {
	return &LedgerService{purchases: purchases, members: members}
}

type RecordPurchaseInput struct {
	UserID        uuid.UUID
	Quantity      decimal.Decimal
	PricePerShare decimal.Decimal
	PaymentMethod domain.PaymentMethod
	PurchaseDate  *time.Time
	TotalAmount   *decimal.Decimal
	Notes         *string
	RecordedBy    uuid.UUID
}

var minQuantity = decimal.NewFromInt(1)

// RecordPurchase persists exactly one ledger row. The month bucket and, when
// absent, the total amount are derived here, at write time; rows are never
// updated afterwards.
func (s *LedgerService) RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*domain.SharePurchase, error) {
	log := logging.FromContext(ctx)

	member, err := s.members.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("RecordPurchase: %w", domain.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("RecordPurchase: %w", err)
	}
	if member.Role != domain.RoleMember {
		// Admins record purchases but do not own shares.
		return nil, fmt.Errorf("RecordPurchase: %w", domain.ErrMemberNotFound)
	}

	if in.Quantity.LessThan(minQuantity) {
		return nil, fmt.Errorf("RecordPurchase: %w", domain.ErrInvalidQuantity)
	}
	if in.PricePerShare.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("RecordPurchase: %w", domain.ErrInvalidPrice)
	}
	if !in.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("RecordPurchase: %w", domain.ErrInvalidPaymentMethod)
	}

	now := time.Now().UTC()
	purchaseDate := now
	if in.PurchaseDate != nil {
		purchaseDate = in.PurchaseDate.UTC()
	}

	computed := domain.ComputeTotalAmount(in.Quantity, in.PricePerShare)
	totalAmount := computed
	if in.TotalAmount != nil {
		// A caller-supplied total is stored as authoritative. Clients send
		// fee-adjusted totals, so a mismatch is only surfaced to operators.
		totalAmount = *in.TotalAmount
		if !totalAmount.Equal(computed) {
			log.Warn("supplied total amount differs from quantity * price",
				"user_id", in.UserID,
				"supplied", totalAmount,
				"computed", computed,
			)
		}
	}

	purchase := &domain.SharePurchase{
		ID:            uuid.New(),
		UserID:        in.UserID,
		Quantity:      in.Quantity,
		PricePerShare: in.PricePerShare,
		TotalAmount:   totalAmount,
		PaymentMethod: in.PaymentMethod,
		PurchaseDate:  purchaseDate,
		Month:         domain.MonthKey(purchaseDate),
		Notes:         in.Notes,
		RecordedBy:    in.RecordedBy,
		CreatedAt:     now,
	}

	if err := s.purchases.Create(ctx, purchase); err != nil {
		return nil, fmt.Errorf("RecordPurchase: %w", err)
	}

	log.Info("share purchase recorded",
		"purchase_id", purchase.ID,
		"user_id", purchase.UserID,
		"quantity", purchase.Quantity,
		"month", purchase.Month,
	)

	return purchase, nil
}
