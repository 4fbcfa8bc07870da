package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
)

// ErrCatalogBootstrap indicates the default catalog could not be seeded. The
// process must treat this as fatal: serving with a partial catalog silently
// denies everything the missing grants would have allowed.
var ErrCatalogBootstrap = errors.New("catalog bootstrap failed")

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ResourceTypeUser and ResourceTypeRole name the catalog's own surfaces as
// protectable resource types; documents come from the domain package.
const (
	ResourceTypeUser = "user"
	ResourceTypeRole = "role"
)

var catalogResources = []string{ResourceTypeUser, ResourceTypeRole, domain.ResourceTypeDocument}

var catalogActions = []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

// defaultRoleGrants maps each default role to the permission names it holds.
// Bootstrap overwrites the role's set to exactly these grants so drifted
// catalogs converge back to the defaults on restart.
var defaultRoleGrants = map[string][]string{
	RoleAdmin: allPermissionNames(),
	RoleUser: {
		PermissionName(ResourceTypeUser, ActionRead),
		PermissionName(domain.ResourceTypeDocument, ActionRead),
		PermissionName(domain.ResourceTypeDocument, ActionCreate),
		PermissionName(domain.ResourceTypeDocument, ActionUpdate),
		PermissionName(domain.ResourceTypeDocument, ActionDelete),
	},
	RoleGuest: {
		PermissionName(ResourceTypeUser, ActionRead),
		PermissionName(domain.ResourceTypeDocument, ActionRead),
	},
}

var defaultRoleDescriptions = map[string]string{
	RoleAdmin: "Full access to every resource",
	RoleUser:  "Read users; full document access",
	RoleGuest: "Read-only access to users and documents",
}

// PermissionName renders the canonical "resource:action" permission label.
func PermissionName(resource, action string) string {
	return resource + ":" + action
}

func allPermissionNames() []string {
	names := make([]string, 0, len(catalogResources)*len(catalogActions))
	for _, resource := range catalogResources {
		for _, action := range catalogActions {
			names = append(names, PermissionName(resource, action))
		}
	}
	return names
}

// CatalogBootstrapper seeds the default roles and permissions at startup.
// EnsureDefaults is idempotent: a second run against an already seeded catalog
// changes nothing, and concurrent runs converge on the same state.
type CatalogBootstrapper struct {
	store  port.CatalogStore
	logger *zap.Logger
}

// NewCatalogBootstrapper constructs the bootstrapper.
func NewCatalogBootstrapper(store port.CatalogStore, logger *zap.Logger) *CatalogBootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogBootstrapper{store: store, logger: logger}
}

// EnsureDefaults seeds every default permission and role inside one
// transaction and overwrites each default role's grant set to the canonical
// one. Pre-existing rows keep their IDs; only membership is rewritten.
func (b *CatalogBootstrapper) EnsureDefaults(ctx context.Context) error {
	err := b.store.InTx(ctx, func(tx port.CatalogTx) error {
		permissionIDs := make(map[string]string, len(catalogResources)*len(catalogActions))

		for _, resource := range catalogResources {
			for _, action := range catalogActions {
				name := PermissionName(resource, action)
				description := fmt.Sprintf("Allows %s on %s resources", action, resource)
				persisted, err := tx.EnsurePermission(ctx, domain.Permission{
					ID:          uuid.NewString(),
					Name:        name,
					Resource:    resource,
					Action:      action,
					Description: &description,
				})
				if err != nil {
					return err
				}
				permissionIDs[name] = persisted.ID
			}
		}

		for _, roleName := range []string{RoleAdmin, RoleUser, RoleGuest} {
			description := defaultRoleDescriptions[roleName]
			persisted, err := tx.EnsureRole(ctx, domain.Role{
				ID:          uuid.NewString(),
				Name:        roleName,
				Description: &description,
			})
			if err != nil {
				return err
			}

			grantNames := defaultRoleGrants[roleName]
			grantIDs := make([]string, 0, len(grantNames))
			for _, name := range grantNames {
				id, ok := permissionIDs[name]
				if !ok {
					return fmt.Errorf("default grant %q has no seeded permission", name)
				}
				grantIDs = append(grantIDs, id)
			}

			if err := tx.ReplaceRolePermissions(ctx, persisted.ID, grantIDs); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogBootstrap, err)
	}

	b.logger.Info("default catalog seeded",
		zap.Int("roles", len(defaultRoleGrants)),
		zap.Int("permissions", len(catalogResources)*len(catalogActions)),
	)

	return nil
}
