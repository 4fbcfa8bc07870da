package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	uuid "github.com/google/uuid"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/repository"
)

// ErrPermissionExists indicates a permission with the same name already exists.
var ErrPermissionExists = errors.New("permission already exists")

var permissionTokenPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CreatePermissionInput captures the payload for defining a permission. The
// canonical name is derived from the (resource, action) pair and cannot be
// supplied directly.
type CreatePermissionInput struct {
	Resource    string
	Action      string
	Description *string
}

// PermissionService manages the permission catalog.
type PermissionService struct {
	permissions port.PermissionRepository
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(permissions port.PermissionRepository) *PermissionService {
	return &PermissionService{permissions: permissions}
}

// ListPermissions returns the whole catalog ordered by resource, then action.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.permissions.List(ctx)
}

// GetPermission returns a permission by ID.
func (s *PermissionService) GetPermission(ctx context.Context, id string) (*domain.Permission, error) {
	permission, err := s.permissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("lookup permission: %w", err)
	}
	return permission, nil
}

// CreatePermission defines a new (resource, action) grant in the catalog.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (domain.Permission, error) {
	resource := strings.ToLower(strings.TrimSpace(input.Resource))
	action := strings.ToLower(strings.TrimSpace(input.Action))

	if !permissionTokenPattern.MatchString(resource) {
		return domain.Permission{}, fmt.Errorf("invalid resource %q", input.Resource)
	}
	if !permissionTokenPattern.MatchString(action) {
		return domain.Permission{}, fmt.Errorf("invalid action %q", input.Action)
	}

	permission := domain.Permission{
		ID:       uuid.NewString(),
		Name:     PermissionName(resource, action),
		Resource: resource,
		Action:   action,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			permission.Description = &trimmed
		}
	}

	if err := s.permissions.Create(ctx, permission); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Permission{}, ErrPermissionExists
		}
		return domain.Permission{}, fmt.Errorf("create permission: %w", err)
	}

	return permission, nil
}

// DeletePermission removes the permission and any role grants referencing it.
func (s *PermissionService) DeletePermission(ctx context.Context, id string) error {
	if err := s.permissions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("delete permission: %w", err)
	}
	return nil
}

// ListUserPermissions returns the distinct union of permissions across every
// role the user holds.
func (s *PermissionService) ListUserPermissions(ctx context.Context, userID string) ([]domain.Permission, error) {
	return s.permissions.ListByUser(ctx, userID)
}
