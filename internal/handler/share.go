package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/umoja-coop/shares-api/internal/auth"
	"github.com/umoja-coop/shares-api/internal/domain"
	"github.com/umoja-coop/shares-api/internal/logging"
	"github.com/umoja-coop/shares-api/internal/service"
)

type ledgerWriter interface {
	RecordPurchase(ctx context.Context, in service.RecordPurchaseInput) (*domain.SharePurchase, error)
}

type shareQueries interface {
	SharesForUser(ctx context.Context, p auth.Principal, userID uuid.UUID) (*service.UserShares, error)
	MonthlyShares(ctx context.Context, p auth.Principal, userID uuid.UUID) ([]service.MonthlyRollup, error)
	AllShares(ctx context.Context, p auth.Principal) ([]domain.PurchaseWithMember, error)
	GlobalStats(ctx context.Context, p auth.Principal) (*service.GlobalStats, error)
	StatsForMonth(ctx context.Context, p auth.Principal, month, year int) (*service.MonthStats, error)
	AvailableMonths(ctx context.Context, p auth.Principal) ([]service.MonthIndexEntry, error)
}

type ShareHandler struct {
	ledger  ledgerWriter
	queries shareQueries
}

func NewShareHandler(ledger ledgerWriter, queries shareQueries) *ShareHandler {
	return &ShareHandler{ledger: ledger, queries: queries}
}

func principalFrom(r *http.Request) (auth.Principal, *AppError) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, ErrMissingToken
	}
	return p, nil
}

type recordPurchaseRequest struct {
	UserID        string           `json:"userId"`
	Quantity      decimal.Decimal  `json:"quantity"`
	PricePerShare decimal.Decimal  `json:"pricePerShare"`
	PaymentMethod string           `json:"paymentMethod"`
	PurchaseDate  string           `json:"purchaseDate"`
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	Notes         *string          `json:"notes"`
}

func (r recordPurchaseRequest) Validate() []FieldError {
	var errs []FieldError
	if r.UserID == "" {
		errs = append(errs, FieldError{Field: "userId", Message: "required"})
	} else if _, err := uuid.Parse(r.UserID); err != nil {
		errs = append(errs, FieldError{Field: "userId", Message: "must be a valid id"})
	}
	if r.Quantity.LessThan(decimal.NewFromInt(1)) {
		errs = append(errs, FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	if r.PricePerShare.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, FieldError{Field: "pricePerShare", Message: "must be greater than zero"})
	}
	if !domain.PaymentMethod(r.PaymentMethod).IsValid() {
		errs = append(errs, FieldError{Field: "paymentMethod", Message: "must be one of paypal, bank_transfer, skrill, cash, check, other"})
	}
	if r.PurchaseDate != "" {
		if _, err := parsePurchaseDate(r.PurchaseDate); err != nil {
			errs = append(errs, FieldError{Field: "purchaseDate", Message: "must be an ISO-8601 timestamp or YYYY-MM-DD date"})
		}
	}
	return errs
}

func parsePurchaseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

type purchaseDTO struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	Quantity      decimal.Decimal `json:"quantity"`
	PricePerShare decimal.Decimal `json:"pricePerShare"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	Month         string          `json:"month"`
	Notes         *string         `json:"notes,omitempty"`
	RecordedBy    uuid.UUID       `json:"recordedBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toPurchaseDTO(p *domain.SharePurchase) purchaseDTO {
	return purchaseDTO{
		ID:            p.ID,
		UserID:        p.UserID,
		Quantity:      p.Quantity,
		PricePerShare: p.PricePerShare.Round(2),
		TotalAmount:   p.TotalAmount.Round(2),
		PaymentMethod: string(p.PaymentMethod),
		PurchaseDate:  p.PurchaseDate,
		Month:         p.Month,
		Notes:         p.Notes,
		RecordedBy:    p.RecordedBy,
		CreatedAt:     p.CreatedAt,
	}
}

type joinedPurchaseDTO struct {
	purchaseDTO
	MemberName  string `json:"memberName"`
	MemberEmail string `json:"memberEmail"`
}

func toJoinedPurchaseDTOs(rows []domain.PurchaseWithMember) []joinedPurchaseDTO {
	dtos := make([]joinedPurchaseDTO, len(rows))
	for i := range rows {
		dtos[i] = joinedPurchaseDTO{
			purchaseDTO: toPurchaseDTO(&rows[i].SharePurchase),
			MemberName:  rows[i].MemberName,
			MemberEmail: rows[i].MemberEmail,
		}
	}
	return dtos
}

// Create handles POST /api/v1/shares (admin).
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req recordPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	in := service.RecordPurchaseInput{
		UserID:        uuid.MustParse(req.UserID),
		Quantity:      req.Quantity,
		PricePerShare: req.PricePerShare,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		TotalAmount:   req.TotalAmount,
		Notes:         req.Notes,
		RecordedBy:    p.ID,
	}
	if req.PurchaseDate != "" {
		// Validate already checked the format.
		t, _ := parsePurchaseDate(req.PurchaseDate)
		in.PurchaseDate = &t
	}

	purchase, err := h.ledger.RecordPurchase(r.Context(), in)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to record purchase", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toPurchaseDTO(purchase))
}

// List handles GET /api/v1/shares (admin).
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	rows, err := h.queries.AllShares(r.Context(), p)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list shares", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := toJoinedPurchaseDTOs(rows)
	RespondList(w, http.StatusOK, len(dtos), dtos)
}

type monthBucketDTO struct {
	Month  string          `json:"month"`
	Shares decimal.Decimal `json:"shares"`
	Value  decimal.Decimal `json:"value"`
}

type memberRankDTO struct {
	UserID      uuid.UUID       `json:"userId"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	TotalShares decimal.Decimal `json:"totalShares"`
}

type globalStatsDTO struct {
	TotalShares         decimal.Decimal  `json:"totalShares"`
	TotalValue          decimal.Decimal  `json:"totalValue"`
	MonthlyDistribution []monthBucketDTO `json:"monthlyDistribution"`
	TopMembers          []memberRankDTO  `json:"topMembers"`
}

// Stats handles GET /api/v1/shares/stats (admin).
func (h *ShareHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	stats, err := h.queries.GlobalStats(r.Context(), p)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to compute global stats", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := globalStatsDTO{
		TotalShares:         stats.TotalShares,
		TotalValue:          stats.TotalValue.Round(2),
		MonthlyDistribution: make([]monthBucketDTO, len(stats.MonthlyDistribution)),
		TopMembers:          make([]memberRankDTO, len(stats.TopMembers)),
	}
	for i, b := range stats.MonthlyDistribution {
		dto.MonthlyDistribution[i] = monthBucketDTO{
			Month:  b.Month,
			Shares: b.Shares,
			Value:  b.Value.Round(2),
		}
	}
	for i, m := range stats.TopMembers {
		dto.TopMembers[i] = memberRankDTO{
			UserID:      m.UserID,
			Name:        m.Name,
			Email:       m.Email,
			TotalShares: m.TotalShares,
		}
	}

	RespondSuccess(w, http.StatusOK, dto)
}

type monthStatisticsDTO struct {
	TotalShares      decimal.Decimal `json:"totalShares"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	TransactionCount int             `json:"transactionCount"`
}

type contributorDTO struct {
	UserID           uuid.UUID       `json:"userId"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	TotalShares      decimal.Decimal `json:"totalShares"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TransactionCount int             `json:"transactionCount"`
}

type monthStatsDTO struct {
	Month           int                `json:"month"`
	Year            int                `json:"year"`
	MonthString     string             `json:"monthString"`
	Shares          []joinedPurchaseDTO `json:"shares"`
	Statistics      monthStatisticsDTO `json:"statistics"`
	TopContributors []contributorDTO   `json:"topContributors"`
}

// Monthly handles GET /api/v1/shares/monthly/{month}/{year} (admin).
func (h *ShareHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var fields []FieldError
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		fields = append(fields, FieldError{Field: "month", Message: "must be a number"})
	}
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		fields = append(fields, FieldError{Field: "year", Message: "must be a number"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	stats, err := h.queries.StatsForMonth(r.Context(), p, month, year)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to compute month stats", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := monthStatsDTO{
		Month:       month,
		Year:        year,
		MonthString: stats.MonthKey,
		Shares:      toJoinedPurchaseDTOs(stats.Shares),
		Statistics: monthStatisticsDTO{
			TotalShares:      stats.Statistics.TotalShares,
			TotalValue:       stats.Statistics.TotalValue.Round(2),
			AveragePrice:     stats.Statistics.AveragePrice.Round(2),
			TransactionCount: stats.Statistics.TransactionCount,
		},
		TopContributors: make([]contributorDTO, len(stats.TopContributors)),
	}
	for i, c := range stats.TopContributors {
		dto.TopContributors[i] = contributorDTO{
			UserID:           c.UserID,
			Name:             c.Name,
			Email:            c.Email,
			TotalShares:      c.TotalShares,
			TotalAmount:      c.TotalAmount.Round(2),
			TransactionCount: c.TransactionCount,
		}
	}

	RespondSuccess(w, http.StatusOK, dto)
}

type monthIndexDTO struct {
	Month            string          `json:"month"`
	ShareCount       decimal.Decimal `json:"shareCount"`
	TransactionCount int             `json:"transactionCount"`
}

// AvailableMonths handles GET /api/v1/shares/available-months (admin).
func (h *ShareHandler) AvailableMonths(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	entries, err := h.queries.AvailableMonths(r.Context(), p)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list available months", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]monthIndexDTO, len(entries))
	for i, e := range entries {
		dtos[i] = monthIndexDTO{
			Month:            e.Month,
			ShareCount:       e.ShareCount,
			TransactionCount: e.TransactionCount,
		}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

// MyShares handles GET /api/v1/member/shares (self-scoped).
func (h *ShareHandler) MyShares(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	shares, err := h.queries.SharesForUser(r.Context(), p, p.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load member shares", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]purchaseDTO, len(shares.Purchases))
	for i := range shares.Purchases {
		dtos[i] = toPurchaseDTO(&shares.Purchases[i])
	}

	count := len(dtos)
	RespondJSON(w, http.StatusOK, APIResponse{
		Success:     true,
		Count:       &count,
		TotalShares: &shares.TotalShares,
		Data:        dtos,
	})
}

type monthlyRollupDTO struct {
	Month       string              `json:"month"`
	TotalShares decimal.Decimal     `json:"totalShares"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Purchases   []rollupPurchaseDTO `json:"purchases"`
}

// rollupPurchaseDTO is the reduced row shape inside a monthly rollup group.
type rollupPurchaseDTO struct {
	ID            uuid.UUID       `json:"id"`
	Quantity      decimal.Decimal `json:"quantity"`
	PricePerShare decimal.Decimal `json:"pricePerShare"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
}

// MyMonthlyShares handles GET /api/v1/member/shares/monthly (self-scoped).
func (h *ShareHandler) MyMonthlyShares(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	rollups, err := h.queries.MonthlyShares(r.Context(), p, p.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load monthly shares", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]monthlyRollupDTO, len(rollups))
	for i, g := range rollups {
		dto := monthlyRollupDTO{
			Month:       g.Month,
			TotalShares: g.TotalShares,
			TotalAmount: g.TotalAmount.Round(2),
			Purchases:   make([]rollupPurchaseDTO, len(g.Purchases)),
		}
		for j, row := range g.Purchases {
			dto.Purchases[j] = rollupPurchaseDTO{
				ID:            row.ID,
				Quantity:      row.Quantity,
				PricePerShare: row.PricePerShare.Round(2),
				TotalAmount:   row.TotalAmount.Round(2),
				PurchaseDate:  row.PurchaseDate,
			}
		}
		dtos[i] = dto
	}

	RespondList(w, http.StatusOK, len(dtos), dtos)
}
