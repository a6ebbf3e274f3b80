package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/umoja-coop/shares-api/internal/auth"
	"github.com/umoja-coop/shares-api/internal/domain"
)

type purchaseReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SharePurchase, error)
	ListAll(ctx context.Context) ([]domain.PurchaseWithMember, error)
	ListByMonth(ctx context.Context, monthKey string) ([]domain.PurchaseWithMember, error)
}

// ShareQueryService is the read side of the ledger. Every view is recomputed
// from ledger rows on each call; nothing here mutates state, so repeated calls
// with no intervening writes return identical results.
//
// All entry points take the caller's Principal and enforce scope in one place:
// members only reach their own rows, everything else is admin-only.
type ShareQueryService struct {
	purchases purchaseReader
}

func NewShareQueryService(purchases purchaseReader) *ShareQueryService {
	return &ShareQueryService{purchases: purchases}
}

const (
	topMemberLimit      = 10
	topContributorLimit = 5
	distributionMonths  = 12
)

type UserShares struct {
	TotalShares decimal.Decimal
	Purchases   []domain.SharePurchase
}

type MonthlyRollup struct {
	Month       string
	TotalShares decimal.Decimal
	TotalAmount decimal.Decimal
	Purchases   []domain.SharePurchase
}

type MonthBucket struct {
	Month  string
	Shares decimal.Decimal
	Value  decimal.Decimal
}

type MemberRank struct {
	UserID      uuid.UUID
	Name        string
	Email       string
	TotalShares decimal.Decimal
}

type GlobalStats struct {
	TotalShares         decimal.Decimal
	TotalValue          decimal.Decimal
	MonthlyDistribution []MonthBucket
	TopMembers          []MemberRank
}

type MonthStatistics struct {
	TotalShares      decimal.Decimal
	TotalValue       decimal.Decimal
	AveragePrice     decimal.Decimal
	TransactionCount int
}

type Contributor struct {
	UserID           uuid.UUID
	Name             string
	Email            string
	TotalShares      decimal.Decimal
	TotalAmount      decimal.Decimal
	TransactionCount int
}

type MonthStats struct {
	MonthKey        string
	Shares          []domain.PurchaseWithMember
	Statistics      MonthStatistics
	TopContributors []Contributor
}

type MonthIndexEntry struct {
	Month            string
	ShareCount       decimal.Decimal
	TransactionCount int
}

// SharesForUser returns a member's purchases, newest first, with their summed
// share count. Members may only query themselves; admins may query anyone.
func (s *ShareQueryService) SharesForUser(ctx context.Context, p auth.Principal, userID uuid.UUID) (*UserShares, error) {
	if err := scopeToUser(p, userID); err != nil {
		return nil, fmt.Errorf("SharesForUser: %w", err)
	}

	rows, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SharesForUser: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Quantity)
	}

	return &UserShares{TotalShares: total, Purchases: rows}, nil
}

// MonthlyShares groups a member's purchases by their stored month bucket,
// newest month first.
func (s *ShareQueryService) MonthlyShares(ctx context.Context, p auth.Principal, userID uuid.UUID) ([]MonthlyRollup, error) {
	if err := scopeToUser(p, userID); err != nil {
		return nil, fmt.Errorf("MonthlyShares: %w", err)
	}

	rows, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("MonthlyShares: %w", err)
	}

	return rollupByMonth(rows), nil
}

// AllShares returns the full ledger with purchaser details, newest first.
func (s *ShareQueryService) AllShares(ctx context.Context, p auth.Principal) ([]domain.PurchaseWithMember, error) {
	if err := requireAdmin(p); err != nil {
		return nil, fmt.Errorf("AllShares: %w", err)
	}

	rows, err := s.purchases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("AllShares: %w", err)
	}
	return rows, nil
}

// GlobalStats computes organization-wide totals, the last 12 month buckets,
// and the top 10 members by summed shares.
func (s *ShareQueryService) GlobalStats(ctx context.Context, p auth.Principal) (*GlobalStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, fmt.Errorf("GlobalStats: %w", err)
	}

	rows, err := s.purchases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("GlobalStats: %w", err)
	}

	stats := &GlobalStats{
		TotalShares:         decimal.Zero,
		TotalValue:          decimal.Zero,
		MonthlyDistribution: monthlyDistribution(rows),
		TopMembers:          topMembers(rows),
	}
	for _, row := range rows {
		stats.TotalShares = stats.TotalShares.Add(row.Quantity)
		stats.TotalValue = stats.TotalValue.Add(row.TotalAmount)
	}

	return stats, nil
}

// StatsForMonth computes the month-scoped view: the month's rows with
// purchaser details, summary statistics, and the top 5 contributors. An empty
// month yields zeroed statistics, not an error.
func (s *ShareQueryService) StatsForMonth(ctx context.Context, p auth.Principal, month, year int) (*MonthStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, fmt.Errorf("StatsForMonth: %w", err)
	}

	key, err := domain.BuildMonthKey(month, year)
	if err != nil {
		return nil, fmt.Errorf("StatsForMonth: %w", err)
	}

	rows, err := s.purchases.ListByMonth(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("StatsForMonth: %w", err)
	}

	return &MonthStats{
		MonthKey:        key,
		Shares:          rows,
		Statistics:      monthStatistics(rows),
		TopContributors: topContributors(rows),
	}, nil
}

// AvailableMonths lists every distinct month bucket present in the ledger,
// newest first, with per-bucket share and transaction counts.
func (s *ShareQueryService) AvailableMonths(ctx context.Context, p auth.Principal) ([]MonthIndexEntry, error) {
	if err := requireAdmin(p); err != nil {
		return nil, fmt.Errorf("AvailableMonths: %w", err)
	}

	rows, err := s.purchases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("AvailableMonths: %w", err)
	}

	byMonth := make(map[string]*MonthIndexEntry)
	var order []string
	for _, row := range rows {
		entry, ok := byMonth[row.Month]
		if !ok {
			entry = &MonthIndexEntry{Month: row.Month, ShareCount: decimal.Zero}
			byMonth[row.Month] = entry
			order = append(order, row.Month)
		}
		entry.ShareCount = entry.ShareCount.Add(row.Quantity)
		entry.TransactionCount++
	}

	sort.Sort(sort.Reverse(sort.StringSlice(order)))

	entries := make([]MonthIndexEntry, len(order))
	for i, month := range order {
		entries[i] = *byMonth[month]
	}
	return entries, nil
}

func scopeToUser(p auth.Principal, userID uuid.UUID) error {
	if p.IsAdmin() || p.ID == userID {
		return nil
	}
	return domain.ErrForbidden
}

func requireAdmin(p auth.Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return domain.ErrForbidden
}

// rollupByMonth groups rows by their stored bucket. Input rows arrive sorted
// purchase-date descending and keep that order within each group; groups are
// sorted by month key descending, which is chronological for YYYY-MM strings.
func rollupByMonth(rows []domain.SharePurchase) []MonthlyRollup {
	byMonth := make(map[string]*MonthlyRollup)
	var order []string
	for _, row := range rows {
		group, ok := byMonth[row.Month]
		if !ok {
			group = &MonthlyRollup{
				Month:       row.Month,
				TotalShares: decimal.Zero,
				TotalAmount: decimal.Zero,
			}
			byMonth[row.Month] = group
			order = append(order, row.Month)
		}
		group.TotalShares = group.TotalShares.Add(row.Quantity)
		group.TotalAmount = group.TotalAmount.Add(row.TotalAmount)
		group.Purchases = append(group.Purchases, row)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(order)))

	rollups := make([]MonthlyRollup, len(order))
	for i, month := range order {
		rollups[i] = *byMonth[month]
	}
	return rollups
}

func monthlyDistribution(rows []domain.PurchaseWithMember) []MonthBucket {
	byMonth := make(map[string]*MonthBucket)
	var order []string
	for _, row := range rows {
		bucket, ok := byMonth[row.Month]
		if !ok {
			bucket = &MonthBucket{Month: row.Month, Shares: decimal.Zero, Value: decimal.Zero}
			byMonth[row.Month] = bucket
			order = append(order, row.Month)
		}
		bucket.Shares = bucket.Shares.Add(row.Quantity)
		bucket.Value = bucket.Value.Add(row.TotalAmount)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(order)))
	if len(order) > distributionMonths {
		order = order[:distributionMonths]
	}

	buckets := make([]MonthBucket, len(order))
	for i, month := range order {
		buckets[i] = *byMonth[month]
	}
	return buckets
}

// topMembers ranks members by summed quantity. Ties keep encounter order in
// the ledger scan, which is deterministic for a fixed ledger state.
func topMembers(rows []domain.PurchaseWithMember) []MemberRank {
	byUser := make(map[uuid.UUID]*MemberRank)
	var order []uuid.UUID
	for _, row := range rows {
		rank, ok := byUser[row.UserID]
		if !ok {
			rank = &MemberRank{
				UserID:      row.UserID,
				Name:        row.MemberName,
				Email:       row.MemberEmail,
				TotalShares: decimal.Zero,
			}
			byUser[row.UserID] = rank
			order = append(order, row.UserID)
		}
		rank.TotalShares = rank.TotalShares.Add(row.Quantity)
	}

	ranks := make([]MemberRank, len(order))
	for i, id := range order {
		ranks[i] = *byUser[id]
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].TotalShares.GreaterThan(ranks[j].TotalShares)
	})

	if len(ranks) > topMemberLimit {
		ranks = ranks[:topMemberLimit]
	}
	return ranks
}

// monthStatistics summarizes a month subset. averagePrice is the unweighted
// arithmetic mean of price_per_share over the subset's rows.
func monthStatistics(rows []domain.PurchaseWithMember) MonthStatistics {
	stats := MonthStatistics{
		TotalShares:      decimal.Zero,
		TotalValue:       decimal.Zero,
		AveragePrice:     decimal.Zero,
		TransactionCount: len(rows),
	}
	if len(rows) == 0 {
		return stats
	}

	priceSum := decimal.Zero
	for _, row := range rows {
		stats.TotalShares = stats.TotalShares.Add(row.Quantity)
		stats.TotalValue = stats.TotalValue.Add(row.TotalAmount)
		priceSum = priceSum.Add(row.PricePerShare)
	}
	stats.AveragePrice = priceSum.Div(decimal.NewFromInt(int64(len(rows))))

	return stats
}

func topContributors(rows []domain.PurchaseWithMember) []Contributor {
	byUser := make(map[uuid.UUID]*Contributor)
	var order []uuid.UUID
	for _, row := range rows {
		c, ok := byUser[row.UserID]
		if !ok {
			c = &Contributor{
				UserID:      row.UserID,
				Name:        row.MemberName,
				Email:       row.MemberEmail,
				TotalShares: decimal.Zero,
				TotalAmount: decimal.Zero,
			}
			byUser[row.UserID] = c
			order = append(order, row.UserID)
		}
		c.TotalShares = c.TotalShares.Add(row.Quantity)
		c.TotalAmount = c.TotalAmount.Add(row.TotalAmount)
		c.TransactionCount++
	}

	contributors := make([]Contributor, len(order))
	for i, id := range order {
		contributors[i] = *byUser[id]
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].TotalShares.GreaterThan(contributors[j].TotalShares)
	})

	if len(contributors) > topContributorLimit {
		contributors = contributors[:topContributorLimit]
	}
	return contributors
}
