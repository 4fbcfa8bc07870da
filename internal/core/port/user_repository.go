package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetSuperuser(ctx context.Context, id string, superuser bool) error
}
