package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the provided name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound is returned when the referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrPermissionNotFound is returned when a referenced permission name is
	// not in the catalog.
	ErrPermissionNotFound = errors.New("permission not found")
)

// CreateRoleInput captures the payload for creating a role.
type CreateRoleInput struct {
	Name        string
	Description *string
	// PermissionNames references catalog permissions by their canonical
	// "resource:action" names. Unknown names fail the whole call.
	PermissionNames []string
}

// CreateRoleResult returns the created role with its resolved permissions.
type CreateRoleResult struct {
	Role        domain.Role
	Permissions []domain.Permission
}

// RoleService manages roles, their grants, and user assignments.
type RoleService struct {
	roles       port.RoleRepository
	permissions port.PermissionRepository
	users       port.UserRepository
	events      port.EventPublisher
	logger      *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, permissions port.PermissionRepository, users port.UserRepository, events port.EventPublisher, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{roles: roles, permissions: permissions, users: users, events: events, logger: logger}
}

// ListRoles returns all roles.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

// GetRole returns a role by ID.
func (s *RoleService) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	return role, nil
}

// CreateRole provisions a new role and grants it the referenced permissions.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (CreateRoleResult, error) {
	var result CreateRoleResult

	roleName := strings.TrimSpace(input.Name)
	if roleName == "" {
		return result, fmt.Errorf("role name is required")
	}

	if existing, err := s.roles.GetByName(ctx, roleName); err == nil && existing != nil {
		return result, ErrRoleExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return result, fmt.Errorf("lookup role by name: %w", err)
	}

	permissions, err := s.resolvePermissions(ctx, input.PermissionNames)
	if err != nil {
		return result, err
	}

	role := domain.Role{ID: uuid.NewString(), Name: roleName}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return result, ErrRoleExists
		}
		return result, fmt.Errorf("create role: %w", err)
	}

	permissionIDs := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		permissionIDs = append(permissionIDs, permission.ID)
	}

	if _, err := s.roles.AssignPermissions(ctx, role.ID, permissionIDs); err != nil {
		return result, fmt.Errorf("assign permissions: %w", err)
	}

	result.Role = role
	result.Permissions = permissions

	s.publish(ctx, "role created", func(ctx context.Context) error {
		if s.events == nil {
			return nil
		}
		return s.events.PublishRoleCreated(ctx, domain.RoleCreatedEvent{
			EventID:   uuid.NewString(),
			RoleID:    role.ID,
			RoleName:  role.Name,
			CreatedAt: time.Now().UTC(),
			Metadata:  map[string]any{"permissions": input.PermissionNames},
		})
	})

	return result, nil
}

// UpdateRole renames a role or changes its description.
func (s *RoleService) UpdateRole(ctx context.Context, role domain.Role) error {
	if strings.TrimSpace(role.Name) == "" {
		return fmt.Errorf("role name is required")
	}

	if err := s.roles.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrRoleNotFound
		case errors.Is(err, repository.ErrConflict):
			return ErrRoleExists
		}
		return fmt.Errorf("update role: %w", err)
	}

	return nil
}

// DeleteRole removes a role together with its grants and user assignments in
// one transaction, so no user is ever left referencing a deleted role.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}

	clearedUserIDs, err := s.roles.DeleteCascade(ctx, role.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}

	s.publish(ctx, "role deleted", func(ctx context.Context) error {
		if s.events == nil {
			return nil
		}
		return s.events.PublishRoleDeleted(ctx, domain.RoleDeletedEvent{
			EventID:        uuid.NewString(),
			RoleID:         role.ID,
			RoleName:       role.Name,
			DeletedAt:      time.Now().UTC(),
			ClearedUserIDs: clearedUserIDs,
		})
	})

	return nil
}

// GrantPermissions adds the named permissions to the role. Already granted
// names are skipped; the returned count covers newly added edges only.
func (s *RoleService) GrantPermissions(ctx context.Context, roleID string, permissionNames []string) (int, error) {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return 0, err
	}

	permissions, err := s.resolvePermissions(ctx, permissionNames)
	if err != nil {
		return 0, err
	}

	permissionIDs := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		permissionIDs = append(permissionIDs, permission.ID)
	}

	granted, err := s.roles.AssignPermissions(ctx, role.ID, permissionIDs)
	if err != nil {
		return 0, fmt.Errorf("assign permissions: %w", err)
	}

	s.publish(ctx, "role permissions granted", func(ctx context.Context) error {
		if s.events == nil {
			return nil
		}
		return s.events.PublishRolePermissionsChanged(ctx, domain.RolePermissionsChangedEvent{
			EventID:   uuid.NewString(),
			RoleID:    role.ID,
			RoleName:  role.Name,
			Granted:   permissionNames,
			ChangedAt: time.Now().UTC(),
		})
	})

	return granted, nil
}

// RevokePermissions removes the named permissions from the role.
func (s *RoleService) RevokePermissions(ctx context.Context, roleID string, permissionNames []string) (int, error) {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return 0, err
	}

	permissions, err := s.resolvePermissions(ctx, permissionNames)
	if err != nil {
		return 0, err
	}

	permissionIDs := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		permissionIDs = append(permissionIDs, permission.ID)
	}

	revoked, err := s.roles.RevokePermissions(ctx, role.ID, permissionIDs)
	if err != nil {
		return 0, fmt.Errorf("revoke permissions: %w", err)
	}

	s.publish(ctx, "role permissions revoked", func(ctx context.Context) error {
		if s.events == nil {
			return nil
		}
		return s.events.PublishRolePermissionsChanged(ctx, domain.RolePermissionsChangedEvent{
			EventID:   uuid.NewString(),
			RoleID:    role.ID,
			RoleName:  role.Name,
			Revoked:   permissionNames,
			ChangedAt: time.Now().UTC(),
		})
	})

	return revoked, nil
}

// AssignRole grants the role to the user. With replace set, any existing
// assignments are cleared first, emulating a single-role topology.
func (s *RoleService) AssignRole(ctx context.Context, userID, roleID string, replace bool) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	if err := s.roles.AssignToUser(ctx, userID, role.ID, replace); err != nil {
		return fmt.Errorf("assign role to user: %w", err)
	}

	s.publish(ctx, "role assigned", func(ctx context.Context) error {
		if s.events == nil {
			return nil
		}
		return s.events.PublishRoleAssigned(ctx, domain.RoleAssignedEvent{
			EventID:    uuid.NewString(),
			UserID:     userID,
			RoleID:     role.ID,
			RoleName:   role.Name,
			Replaced:   replace,
			AssignedAt: time.Now().UTC(),
		})
	})

	return nil
}

// UnassignRole removes the role from the user.
func (s *RoleService) UnassignRole(ctx context.Context, userID, roleID string) error {
	if err := s.roles.UnassignFromUser(ctx, userID, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("unassign role from user: %w", err)
	}
	return nil
}

// ListUserRoles returns the roles assigned to the user.
func (s *RoleService) ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	return s.roles.ListByUser(ctx, userID)
}

// ListRolePermissions returns the permissions granted to the role.
func (s *RoleService) ListRolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return s.permissions.ListByRole(ctx, role.ID)
}

func (s *RoleService) resolvePermissions(ctx context.Context, names []string) ([]domain.Permission, error) {
	permissions := make([]domain.Permission, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, fmt.Errorf("permission name is required")
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}

		permission, err := s.permissions.GetByName(ctx, trimmed)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrPermissionNotFound, trimmed)
			}
			return nil, fmt.Errorf("lookup permission %q: %w", trimmed, err)
		}
		permissions = append(permissions, *permission)
	}

	return permissions, nil
}

// publish runs fn and logs failures instead of failing the catalog mutation:
// events are advisory, the database is the source of truth.
func (s *RoleService) publish(ctx context.Context, what string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.Warn("publish event failed", zap.String("event", what), zap.Error(err))
	}
}
