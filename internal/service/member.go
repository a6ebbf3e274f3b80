package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/umoja-coop/shares-api/internal/domain"
	"github.com/umoja-coop/shares-api/internal/logging"
)

type memberRepo interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	List(ctx context.Context) ([]domain.Member, error)
}

type MemberService struct {
	members memberRepo
}

func NewMemberService(members memberRepo) *MemberService {
	return &MemberService{members: members}
}

func (s *MemberService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Member, error) {
	log := logging.FromContext(ctx)

	if !role.IsValid() {
		return nil, fmt.Errorf("Register: %w", domain.ErrInvalidRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	member := &domain.Member{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.members.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	log.Info("member registered", "member_id", member.ID, "role", member.Role)

	return member, nil
}

func (s *MemberService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return member, nil
}

func (s *MemberService) List(ctx context.Context) ([]domain.Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return members, nil
}
