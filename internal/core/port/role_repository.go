package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// RoleRepository handles role CRUD and the user_roles join table.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Update(ctx context.Context, role domain.Role) error
	// DeleteCascade removes the role together with its role_permissions and
	// user_roles edges in a single transaction and returns the IDs of users
	// whose assignment was cleared.
	DeleteCascade(ctx context.Context, id string) ([]string, error)
	AssignPermissions(ctx context.Context, roleID string, permissionIDs []string) (int, error)
	RevokePermissions(ctx context.Context, roleID string, permissionIDs []string) (int, error)
	AssignToUser(ctx context.Context, userID, roleID string, replace bool) error
	UnassignFromUser(ctx context.Context, userID, roleID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Role, error)
}
