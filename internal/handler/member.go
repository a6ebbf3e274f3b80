package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/umoja-coop/shares-api/internal/domain"
	"github.com/umoja-coop/shares-api/internal/logging"
)

type memberService interface {
	Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Member, error)
	List(ctx context.Context) ([]domain.Member, error)
}

type MemberHandler struct {
	members memberService
}

func NewMemberHandler(members memberService) *MemberHandler {
	return &MemberHandler{members: members}
}

type registerMemberRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r registerMemberRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if r.Role != "" && !domain.Role(r.Role).IsValid() {
		errs = append(errs, FieldError{Field: "role", Message: "must be admin or member"})
	}
	return errs
}

type memberDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMemberDTO(m *domain.Member) memberDTO {
	return memberDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

// Register handles POST /api/v1/members (admin).
func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleMember
	}

	member, err := h.members.Register(r.Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to register member", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMemberDTO(member))
}

// List handles GET /api/v1/members (admin).
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list members", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]memberDTO, len(members))
	for i := range members {
		dtos[i] = toMemberDTO(&members[i])
	}

	RespondList(w, http.StatusOK, len(dtos), dtos)
}
