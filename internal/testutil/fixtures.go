package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/umoja-coop/shares-api/internal/domain"
)

func SeedMember(t *testing.T, db *sql.DB, name, email string, role domain.Role) *domain.Member {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	m := &domain.Member{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = db.Exec(
		`INSERT INTO members (id, name, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Name, m.Email, m.PasswordHash, m.Role, m.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed member %s: %v", email, err)
	}
	return m
}

func SeedPurchase(t *testing.T, db *sql.DB, userID, recordedBy uuid.UUID, quantity, price string, purchaseDate time.Time) uuid.UUID {
	t.Helper()

	q := decimal.RequireFromString(quantity)
	p := decimal.RequireFromString(price)
	id := uuid.New()

	_, err := db.Exec(
		`INSERT INTO share_purchases (
			id, user_id, quantity, price_per_share, total_amount,
			payment_method, purchase_date, month, notes, recorded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, userID, q, p, domain.ComputeTotalAmount(q, p),
		domain.PaymentMethodCash, purchaseDate.UTC(), domain.MonthKey(purchaseDate),
		nil, recordedBy, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed purchase for %s: %v", userID, err)
	}
	return id
}

func CountPurchases(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()

	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM share_purchases WHERE user_id = $1`, userID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count purchases: %v", err)
	}
	return n
}
