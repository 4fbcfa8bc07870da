package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// CatalogTx exposes the create-if-absent operations the bootstrapper runs
// inside one transaction.
type CatalogTx interface {
	// EnsureRole creates the role when absent and returns the persisted row
	// either way.
	EnsureRole(ctx context.Context, role domain.Role) (domain.Role, error)
	// EnsurePermission creates the permission when absent and returns the
	// persisted row either way.
	EnsurePermission(ctx context.Context, permission domain.Permission) (domain.Permission, error)
	// ReplaceRolePermissions overwrites the role's permission set with exactly
	// the provided permission IDs.
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
}

// CatalogStore runs catalog seeding atomically: fn either commits as a whole
// or leaves the prior state intact.
type CatalogStore interface {
	InTx(ctx context.Context, fn func(tx CatalogTx) error) error
}
