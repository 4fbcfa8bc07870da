package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/repository"
)

// ErrUserExists indicates a user with the same username or email exists.
var ErrUserExists = errors.New("user already exists")

// CreateUserInput captures the payload for provisioning a user. PasswordHash
// is stored opaquely; this service never verifies or derives credentials.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	IsSuperuser  bool
}

// UserService handles user lifecycle and subject resolution.
type UserService struct {
	users port.UserRepository
	roles port.RoleRepository
}

// NewUserService constructs a UserService.
func NewUserService(users port.UserRepository, roles port.RoleRepository) *UserService {
	return &UserService{users: users, roles: roles}
}

// CreateUser persists a new user.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" {
		return domain.User{}, fmt.Errorf("username is required")
	}
	if email == "" {
		return domain.User{}, fmt.Errorf("email is required")
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: input.PasswordHash,
		IsActive:     true,
		IsSuperuser:  input.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of users.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.users.List(ctx, limit, offset)
}

// SetActive toggles the user's active flag. Inactive users resolve to denied
// subjects at the gateway.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}

// SetSuperuser toggles the superuser bypass flag.
func (s *UserService) SetSuperuser(ctx context.Context, id string, superuser bool) error {
	if err := s.users.SetSuperuser(ctx, id, superuser); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set user superuser: %w", err)
	}
	return nil
}

// ResolveSubject builds the subject descriptor for a persisted user. The
// permission closure is left unloaded; the evaluator fetches it on first use.
func (s *UserService) ResolveSubject(ctx context.Context, userID string) (*domain.Subject, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	roles, err := s.roles.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}

	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	return domain.SubjectFromUser(user, roleNames), nil
}
