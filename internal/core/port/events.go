package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// EventPublisher emits catalog-change events for downstream consumers
// (audit pipelines, cache invalidation in sibling services).
type EventPublisher interface {
	PublishRoleCreated(ctx context.Context, event domain.RoleCreatedEvent) error
	PublishRoleDeleted(ctx context.Context, event domain.RoleDeletedEvent) error
	PublishRolePermissionsChanged(ctx context.Context, event domain.RolePermissionsChangedEvent) error
	PublishRoleAssigned(ctx context.Context, event domain.RoleAssignedEvent) error
}
