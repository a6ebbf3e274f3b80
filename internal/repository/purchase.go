package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/umoja-coop/shares-api/internal/domain"
)

const purchaseColumns = `id, user_id, quantity, price_per_share, total_amount,
	payment_method, purchase_date, month, notes, recorded_by, created_at`

type PurchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *domain.SharePurchase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO share_purchases (
			id, user_id, quantity, price_per_share, total_amount,
			payment_method, purchase_date, month, notes, recorded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.UserID, p.Quantity, p.PricePerShare, p.TotalAmount,
		p.PaymentMethod, p.PurchaseDate, p.Month, p.Notes, p.RecordedBy, p.CreatedAt,
	)
	if err != nil {
		return wrapStoreErr("Create", err)
	}
	return nil
}

// ListByUser returns a single member's ledger rows, newest purchase first.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SharePurchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM share_purchases
		WHERE user_id = $1 ORDER BY purchase_date DESC`, userID,
	)
	if err != nil {
		return nil, wrapStoreErr("ListByUser", err)
	}
	defer rows.Close()

	return collectPurchases("ListByUser", rows)
}

// ListAll returns the full ledger joined with purchaser name/email, newest
// purchase first. Aggregations always read the whole ledger; there is no
// cached aggregate to fall back on.
func (r *PurchaseRepository) ListAll(ctx context.Context) ([]domain.PurchaseWithMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sp.id, sp.user_id, sp.quantity, sp.price_per_share, sp.total_amount,
			sp.payment_method, sp.purchase_date, sp.month, sp.notes, sp.recorded_by,
			sp.created_at, m.name, m.email
		FROM share_purchases sp
		JOIN members m ON m.id = sp.user_id
		ORDER BY sp.purchase_date DESC`,
	)
	if err != nil {
		return nil, wrapStoreErr("ListAll", err)
	}
	defer rows.Close()

	return collectJoinedPurchases("ListAll", rows)
}

// ListByMonth returns the rows whose stored month bucket equals monthKey,
// joined with purchaser name/email, newest purchase first. Grouping uses the
// stored bucket, never a recomputation from purchase_date.
func (r *PurchaseRepository) ListByMonth(ctx context.Context, monthKey string) ([]domain.PurchaseWithMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sp.id, sp.user_id, sp.quantity, sp.price_per_share, sp.total_amount,
			sp.payment_method, sp.purchase_date, sp.month, sp.notes, sp.recorded_by,
			sp.created_at, m.name, m.email
		FROM share_purchases sp
		JOIN members m ON m.id = sp.user_id
		WHERE sp.month = $1
		ORDER BY sp.purchase_date DESC`, monthKey,
	)
	if err != nil {
		return nil, wrapStoreErr("ListByMonth", err)
	}
	defer rows.Close()

	return collectJoinedPurchases("ListByMonth", rows)
}

func collectPurchases(op string, rows *sql.Rows) ([]domain.SharePurchase, error) {
	var purchases []domain.SharePurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(op+": rows", err)
	}
	return purchases, nil
}

func collectJoinedPurchases(op string, rows *sql.Rows) ([]domain.PurchaseWithMember, error) {
	var purchases []domain.PurchaseWithMember
	for rows.Next() {
		var p domain.PurchaseWithMember
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Quantity, &p.PricePerShare, &p.TotalAmount,
			&p.PaymentMethod, &p.PurchaseDate, &p.Month, &p.Notes, &p.RecordedBy,
			&p.CreatedAt, &p.MemberName, &p.MemberEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(op+": rows", err)
	}
	return purchases, nil
}

func scanPurchase(s scanner) (*domain.SharePurchase, error) {
	var p domain.SharePurchase
	err := s.Scan(
		&p.ID, &p.UserID, &p.Quantity, &p.PricePerShare, &p.TotalAmount,
		&p.PaymentMethod, &p.PurchaseDate, &p.Month, &p.Notes, &p.RecordedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
