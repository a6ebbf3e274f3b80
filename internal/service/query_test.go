package service

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umoja-coop/shares-api/internal/auth"
	"github.com/umoja-coop/shares-api/internal/domain"
)

// fakeLedger mimics the repository's contract: rows come back sorted by
// purchase date descending, ListByUser/ListByMonth filter on the stored
// column values.
type fakeLedger struct {
	rows []domain.PurchaseWithMember
	err  error
}

func (f *fakeLedger) sorted() []domain.PurchaseWithMember {
	out := make([]domain.PurchaseWithMember, len(f.rows))
	copy(out, f.rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchaseDate.After(out[j].PurchaseDate)
	})
	return out
}

func (f *fakeLedger) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.SharePurchase, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SharePurchase
	for _, row := range f.sorted() {
		if row.UserID == userID {
			out = append(out, row.SharePurchase)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListAll(_ context.Context) ([]domain.PurchaseWithMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(), nil
}

func (f *fakeLedger) ListByMonth(_ context.Context, monthKey string) ([]domain.PurchaseWithMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.PurchaseWithMember
	for _, row := range f.sorted() {
		if row.Month == monthKey {
			out = append(out, row)
		}
	}
	return out, nil
}

func adminPrincipal() auth.Principal {
	return auth.Principal{ID: uuid.New(), Email: "admin@coop.test", Role: domain.RoleAdmin}
}

func memberPrincipal(id uuid.UUID) auth.Principal {
	return auth.Principal{ID: id, Email: "member@coop.test", Role: domain.RoleMember}
}

func purchaseRow(userID uuid.UUID, name string, quantity, price string, date time.Time) domain.PurchaseWithMember {
	q := decimal.RequireFromString(quantity)
	p := decimal.RequireFromString(price)
	return domain.PurchaseWithMember{
		SharePurchase: domain.SharePurchase{
			ID:            uuid.New(),
			UserID:        userID,
			Quantity:      q,
			PricePerShare: p,
			TotalAmount:   domain.ComputeTotalAmount(q, p),
			PaymentMethod: domain.PaymentMethodCash,
			PurchaseDate:  date.UTC(),
			Month:         domain.MonthKey(date),
			RecordedBy:    uuid.New(),
			CreatedAt:     date.UTC(),
		},
		MemberName:  name,
		MemberEmail: name + "@coop.test",
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
}

func TestSharesForUser(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userA, "ann", "5", "10.00", day(2025, 3, 15)),
		purchaseRow(userA, "ann", "2.5", "12.00", day(2025, 4, 1)),
		purchaseRow(userB, "ben", "7", "10.00", day(2025, 3, 20)),
	}}
	svc := NewShareQueryService(ledger)

	shares, err := svc.SharesForUser(context.Background(), adminPrincipal(), userA)
	require.NoError(t, err)

	assert.True(t, shares.TotalShares.Equal(decimal.RequireFromString("7.5")))
	require.Len(t, shares.Purchases, 2)
	// Newest purchase first.
	assert.Equal(t, day(2025, 4, 1), shares.Purchases[0].PurchaseDate)
	assert.Equal(t, day(2025, 3, 15), shares.Purchases[1].PurchaseDate)
}

func TestSharesForUserEmptyLedger(t *testing.T) {
	svc := NewShareQueryService(&fakeLedger{})
	userID := uuid.New()

	shares, err := svc.SharesForUser(context.Background(), memberPrincipal(userID), userID)
	require.NoError(t, err)
	assert.True(t, shares.TotalShares.IsZero())
	assert.Empty(t, shares.Purchases)
}

func TestSharesForUserScope(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	svc := NewShareQueryService(&fakeLedger{})

	_, err := svc.SharesForUser(context.Background(), memberPrincipal(userA), userB)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SharesForUser(context.Background(), memberPrincipal(userA), userA)
	require.NoError(t, err)

	_, err = svc.SharesForUser(context.Background(), adminPrincipal(), userB)
	require.NoError(t, err)
}

func TestMonthlyShares(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userID, "ann", "5", "10.00", day(2025, 3, 15)),
		purchaseRow(userID, "ann", "3", "11.00", day(2025, 3, 20)),
		purchaseRow(userID, "ann", "4", "12.00", day(2025, 1, 5)),
	}}
	svc := NewShareQueryService(ledger)

	rollups, err := svc.MonthlyShares(context.Background(), memberPrincipal(userID), userID)
	require.NoError(t, err)
	require.Len(t, rollups, 2)

	// Months descending.
	assert.Equal(t, "2025-03", rollups[0].Month)
	assert.Equal(t, "2025-01", rollups[1].Month)

	march := rollups[0]
	assert.True(t, march.TotalShares.Equal(decimal.NewFromInt(8)))
	assert.True(t, march.TotalAmount.Equal(decimal.RequireFromString("83")))
	require.Len(t, march.Purchases, 2)
	// Within a month, newest first.
	assert.Equal(t, day(2025, 3, 20), march.Purchases[0].PurchaseDate)
	assert.Equal(t, day(2025, 3, 15), march.Purchases[1].PurchaseDate)
}

func TestMonthlyRollupConsistency(t *testing.T) {
	// Summing the monthly rollup must reproduce the flat per-user total.
	userID := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userID, "ann", "1.25", "10.00", day(2024, 11, 2)),
		purchaseRow(userID, "ann", "3", "10.50", day(2024, 12, 9)),
		purchaseRow(userID, "ann", "2", "9.75", day(2024, 12, 30)),
		purchaseRow(userID, "ann", "6.5", "11.00", day(2025, 2, 14)),
	}}
	svc := NewShareQueryService(ledger)
	p := memberPrincipal(userID)

	shares, err := svc.SharesForUser(context.Background(), p, userID)
	require.NoError(t, err)
	rollups, err := svc.MonthlyShares(context.Background(), p, userID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, g := range rollups {
		sum = sum.Add(g.TotalShares)
	}
	assert.True(t, sum.Equal(shares.TotalShares))
}

func TestGlobalStatsEmptyLedger(t *testing.T) {
	svc := NewShareQueryService(&fakeLedger{})

	stats, err := svc.GlobalStats(context.Background(), adminPrincipal())
	require.NoError(t, err)
	assert.True(t, stats.TotalShares.IsZero())
	assert.True(t, stats.TotalValue.IsZero())
	assert.Empty(t, stats.MonthlyDistribution)
	assert.Empty(t, stats.TopMembers)
}

func TestGlobalStatsTotals(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userA, "ann", "5", "10.00", day(2025, 3, 15)),
		purchaseRow(userB, "ben", "3", "20.00", day(2025, 2, 1)),
	}}
	svc := NewShareQueryService(ledger)

	stats, err := svc.GlobalStats(context.Background(), adminPrincipal())
	require.NoError(t, err)

	assert.True(t, stats.TotalShares.Equal(decimal.NewFromInt(8)))
	assert.True(t, stats.TotalValue.Equal(decimal.RequireFromString("110")))

	require.Len(t, stats.TopMembers, 2)
	assert.Equal(t, userA, stats.TopMembers[0].UserID)
	assert.Equal(t, "ann", stats.TopMembers[0].Name)
	assert.Equal(t, "ann@coop.test", stats.TopMembers[0].Email)
}

func TestGlobalStatsDistributionWindow(t *testing.T) {
	// 14 months of purchases: only the 12 most recent buckets survive.
	userID := uuid.New()
	ledger := &fakeLedger{}
	for i := range 14 {
		date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		ledger.rows = append(ledger.rows, purchaseRow(userID, "ann", "1", "10.00", date))
	}
	svc := NewShareQueryService(ledger)

	stats, err := svc.GlobalStats(context.Background(), adminPrincipal())
	require.NoError(t, err)

	require.Len(t, stats.MonthlyDistribution, 12)
	assert.Equal(t, "2025-02", stats.MonthlyDistribution[0].Month)
	assert.Equal(t, "2024-03", stats.MonthlyDistribution[11].Month)
	for i := 1; i < len(stats.MonthlyDistribution); i++ {
		assert.Greater(t, stats.MonthlyDistribution[i-1].Month, stats.MonthlyDistribution[i].Month)
	}
}

func TestGlobalStatsTopMembersBounded(t *testing.T) {
	ledger := &fakeLedger{}
	for i := range 13 {
		userID := uuid.New()
		quantity := fmt.Sprintf("%d", i+1)
		ledger.rows = append(ledger.rows,
			purchaseRow(userID, fmt.Sprintf("user%02d", i), quantity, "10.00", day(2025, 3, i+1)))
	}
	svc := NewShareQueryService(ledger)

	stats, err := svc.GlobalStats(context.Background(), adminPrincipal())
	require.NoError(t, err)

	require.Len(t, stats.TopMembers, 10)
	for i := 1; i < len(stats.TopMembers); i++ {
		assert.False(t, stats.TopMembers[i].TotalShares.GreaterThan(stats.TopMembers[i-1].TotalShares))
	}
	// Heaviest buyer leads.
	assert.True(t, stats.TopMembers[0].TotalShares.Equal(decimal.NewFromInt(13)))
}

func TestGlobalStatsAdminOnly(t *testing.T) {
	svc := NewShareQueryService(&fakeLedger{})

	_, err := svc.GlobalStats(context.Background(), memberPrincipal(uuid.New()))
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestStatsForMonth(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userA, "ann", "1", "10.00", day(2025, 3, 10)),
		purchaseRow(userB, "ben", "100", "20.00", day(2025, 3, 12)),
		purchaseRow(userA, "ann", "4", "15.00", day(2025, 4, 2)),
	}}
	svc := NewShareQueryService(ledger)

	stats, err := svc.StatsForMonth(context.Background(), adminPrincipal(), 3, 2025)
	require.NoError(t, err)

	assert.Equal(t, "2025-03", stats.MonthKey)
	require.Len(t, stats.Shares, 2)
	assert.Equal(t, day(2025, 3, 12), stats.Shares[0].PurchaseDate)

	s := stats.Statistics
	assert.True(t, s.TotalShares.Equal(decimal.NewFromInt(101)))
	assert.True(t, s.TotalValue.Equal(decimal.RequireFromString("2010")))
	// Unweighted mean of 10 and 20, regardless of quantities.
	assert.True(t, s.AveragePrice.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 2, s.TransactionCount)

	require.Len(t, stats.TopContributors, 2)
	assert.Equal(t, userB, stats.TopContributors[0].UserID)
	assert.Equal(t, 1, stats.TopContributors[0].TransactionCount)
	assert.True(t, stats.TopContributors[0].TotalAmount.Equal(decimal.RequireFromString("2000")))
}

func TestStatsForMonthEmptySubset(t *testing.T) {
	svc := NewShareQueryService(&fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(uuid.New(), "ann", "5", "10.00", day(2025, 4, 1)),
	}})

	stats, err := svc.StatsForMonth(context.Background(), adminPrincipal(), 3, 2025)
	require.NoError(t, err)

	assert.Empty(t, stats.Shares)
	assert.Empty(t, stats.TopContributors)
	assert.True(t, stats.Statistics.TotalShares.IsZero())
	assert.True(t, stats.Statistics.TotalValue.IsZero())
	assert.True(t, stats.Statistics.AveragePrice.IsZero())
	assert.Equal(t, 0, stats.Statistics.TransactionCount)
}

func TestStatsForMonthContributorsBounded(t *testing.T) {
	ledger := &fakeLedger{}
	for i := range 7 {
		ledger.rows = append(ledger.rows,
			purchaseRow(uuid.New(), fmt.Sprintf("user%d", i), fmt.Sprintf("%d", i+1), "10.00", day(2025, 3, i+1)))
	}
	svc := NewShareQueryService(ledger)

	stats, err := svc.StatsForMonth(context.Background(), adminPrincipal(), 3, 2025)
	require.NoError(t, err)

	require.Len(t, stats.TopContributors, 5)
	for i := 1; i < len(stats.TopContributors); i++ {
		assert.False(t, stats.TopContributors[i].TotalShares.GreaterThan(stats.TopContributors[i-1].TotalShares))
	}
}

func TestStatsForMonthRejectsBadKeys(t *testing.T) {
	svc := NewShareQueryService(&fakeLedger{})
	admin := adminPrincipal()

	tests := []struct {
		name  string
		month int
		year  int
	}{
		{name: "month zero", month: 0, year: 2025},
		{name: "month thirteen", month: 13, year: 2025},
		{name: "ancient year", month: 5, year: 1999},
		{name: "far future year", month: 5, year: time.Now().UTC().Year() + 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.StatsForMonth(context.Background(), admin, tc.month, tc.year)
			assert.ErrorIs(t, err, domain.ErrInvalidMonthKey)
		})
	}
}

func TestAvailableMonths(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userID, "ann", "5", "10.00", day(2025, 3, 15)),
		purchaseRow(userID, "ann", "3", "10.00", day(2025, 3, 20)),
		purchaseRow(userID, "ann", "2", "10.00", day(2024, 12, 1)),
	}}
	svc := NewShareQueryService(ledger)

	entries, err := svc.AvailableMonths(context.Background(), adminPrincipal())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2025-03", entries[0].Month)
	assert.True(t, entries[0].ShareCount.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, 2, entries[0].TransactionCount)

	assert.Equal(t, "2024-12", entries[1].Month)
	assert.True(t, entries[1].ShareCount.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, entries[1].TransactionCount)
}

func TestReadsAreIdempotent(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{rows: []domain.PurchaseWithMember{
		purchaseRow(userID, "ann", "5", "10.00", day(2025, 3, 15)),
		purchaseRow(uuid.New(), "ben", "2", "11.00", day(2025, 2, 3)),
	}}
	svc := NewShareQueryService(ledger)
	admin := adminPrincipal()

	first, err := svc.GlobalStats(context.Background(), admin)
	require.NoError(t, err)
	second, err := svc.GlobalStats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	m1, err := svc.AvailableMonths(context.Background(), admin)
	require.NoError(t, err)
	m2, err := svc.AvailableMonths(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestQueryErrorsPropagate(t *testing.T) {
	ledger := &fakeLedger{err: domain.ErrStoreUnavailable}
	svc := NewShareQueryService(ledger)
	admin := adminPrincipal()

	_, err := svc.GlobalStats(context.Background(), admin)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = svc.StatsForMonth(context.Background(), admin, 3, 2025)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
