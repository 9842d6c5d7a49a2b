package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hongyu-crm/crm-backend/internal/auth"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/policy"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/rs/zerolog"
)

type UserService struct {
	store repository.Store
	clock status.Clock
}

func NewUserService(store repository.Store, clock status.Clock) *UserService {
	if clock == nil {
		clock = status.SystemClock{}
	}
	return &UserService{store: store, clock: clock}
}

// EnsureSeed creates the fixed super admin account if it is missing.
// An existing seed account is left untouched.
func (s *UserService) EnsureSeed(ctx context.Context, username, password string) (bool, error) {
	_, err := s.store.GetUser(ctx, domain.SeedSuperAdminID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash seed password: %w", err)
	}
	err = s.store.InsertUser(ctx, domain.User{
		ID:           domain.SeedSuperAdminID,
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
		CanViewAll:   true,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("insert seed admin: %w", err)
	}
	return true, nil
}

// List returns every account with its effective visibility.
func (s *UserService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, domain.ErrUnauthorized
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = policy.Effective(users[i])
	}
	return users, nil
}

// Create adds an admin that sees only its own customers.
func (s *UserService) Create(ctx context.Context, actor domain.User, username, password string) (domain.User, error) {
	if !policy.CanManageUsers(actor) {
		return domain.User{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return domain.User{}, fmt.Errorf("username and password are required: %w", domain.ErrInvalidInput)
	}

	existing, err := s.store.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range existing {
		if u.Username == username {
			return domain.User{}, domain.ErrDuplicateUsername
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CanViewAll:   false,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}

	zerolog.Ctx(ctx).Info().Str("user_id", u.ID).Str("username", username).Msg("user created")
	return u, nil
}

// Delete removes an account. The seed super admin can never be deleted and
// the request is silently ignored, whoever makes it.
func (s *UserService) Delete(ctx context.Context, actor domain.User, id string) error {
	if id == domain.SeedSuperAdminID {
		return nil
	}
	if !policy.CanManageUsers(actor) {
		return domain.ErrUnauthorized
	}
	return s.store.DeleteUser(ctx, id)
}

// SetCanViewAll toggles visibility for an admin. Super admins already see
// everything, so targeting one changes nothing.
func (s *UserService) SetCanViewAll(ctx context.Context, actor domain.User, id string, value bool) (domain.User, error) {
	if !policy.CanManageUsers(actor) {
		return domain.User{}, domain.ErrUnauthorized
	}

	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if target.IsSuperAdmin() {
		return policy.Effective(target), nil
	}

	updated, err := s.store.UpdateUser(ctx, id, domain.UserPatch{CanViewAll: &value})
	if err != nil {
		return domain.User{}, err
	}
	return policy.Effective(updated), nil
}
