package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, roleID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("role_id", roleID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishRoleCreated logs authz.role.created events.
func (p *StubPublisher) PublishRoleCreated(_ context.Context, event domain.RoleCreatedEvent) error {
	payload := map[string]any{
		"role_id":    event.RoleID,
		"role_name":  event.RoleName,
		"created_by": event.CreatedBy,
		"created_at": event.CreatedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("authz.role.created", event.RoleID, event.CreatedAt, payload)
	return nil
}

// PublishRoleDeleted logs authz.role.deleted events.
func (p *StubPublisher) PublishRoleDeleted(_ context.Context, event domain.RoleDeletedEvent) error {
	payload := map[string]any{
		"role_id":          event.RoleID,
		"role_name":        event.RoleName,
		"deleted_by":       event.DeletedBy,
		"deleted_at":       event.DeletedAt,
		"cleared_user_ids": event.ClearedUserIDs,
		"metadata":         event.Metadata,
	}
	p.logEvent("authz.role.deleted", event.RoleID, event.DeletedAt, payload)
	return nil
}

// PublishRolePermissionsChanged logs authz.role.permissions.changed events.
func (p *StubPublisher) PublishRolePermissionsChanged(_ context.Context, event domain.RolePermissionsChangedEvent) error {
	payload := map[string]any{
		"role_id":    event.RoleID,
		"role_name":  event.RoleName,
		"granted":    event.Granted,
		"revoked":    event.Revoked,
		"changed_by": event.ChangedBy,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("authz.role.permissions.changed", event.RoleID, event.ChangedAt, payload)
	return nil
}

// PublishRoleAssigned logs authz.role.assigned events.
func (p *StubPublisher) PublishRoleAssigned(_ context.Context, event domain.RoleAssignedEvent) error {
	payload := map[string]any{
		"user_id":     event.UserID,
		"role_id":     event.RoleID,
		"role_name":   event.RoleName,
		"replaced":    event.Replaced,
		"assigned_by": event.AssignedBy,
		"assigned_at": event.AssignedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("authz.role.assigned", event.RoleID, event.AssignedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
