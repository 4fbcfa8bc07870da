package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// PermissionRepository manages permission storage and the role-derived
// permission closure.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) error
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	List(ctx context.Context) ([]domain.Permission, error)
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error)
	// ListByUser returns the distinct union of permissions across every role
	// the user holds.
	ListByUser(ctx context.Context, userID string) ([]domain.Permission, error)
}
