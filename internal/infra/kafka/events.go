package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	RoleID    string           `json:"role_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, roleID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		RoleID:    roleID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishRoleCreated publishes authz.role.created events.
func (p *EventPublisher) PublishRoleCreated(ctx context.Context, event domain.RoleCreatedEvent) error {
	payload := struct {
		RoleID    string         `json:"role_id"`
		RoleName  string         `json:"role_name"`
		CreatedBy string         `json:"created_by,omitempty"`
		CreatedAt time.Time      `json:"created_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		RoleID:    event.RoleID,
		RoleName:  event.RoleName,
		CreatedBy: event.CreatedBy,
		CreatedAt: event.CreatedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "authz.role.created", event.RoleID, event.CreatedAt, payload)
}

// PublishRoleDeleted publishes authz.role.deleted events.
func (p *EventPublisher) PublishRoleDeleted(ctx context.Context, event domain.RoleDeletedEvent) error {
	payload := struct {
		RoleID         string         `json:"role_id"`
		RoleName       string         `json:"role_name"`
		DeletedBy      string         `json:"deleted_by,omitempty"`
		DeletedAt      time.Time      `json:"deleted_at"`
		ClearedUserIDs []string       `json:"cleared_user_ids"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		RoleID:         event.RoleID,
		RoleName:       event.RoleName,
		DeletedBy:      event.DeletedBy,
		DeletedAt:      event.DeletedAt.UTC(),
		ClearedUserIDs: event.ClearedUserIDs,
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "authz.role.deleted", event.RoleID, event.DeletedAt, payload)
}

// PublishRolePermissionsChanged publishes authz.role.permissions.changed events.
func (p *EventPublisher) PublishRolePermissionsChanged(ctx context.Context, event domain.RolePermissionsChangedEvent) error {
	payload := struct {
		RoleID    string         `json:"role_id"`
		RoleName  string         `json:"role_name"`
		Granted   []string       `json:"granted,omitempty"`
		Revoked   []string       `json:"revoked,omitempty"`
		ChangedBy string         `json:"changed_by,omitempty"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		RoleID:    event.RoleID,
		RoleName:  event.RoleName,
		Granted:   event.Granted,
		Revoked:   event.Revoked,
		ChangedBy: event.ChangedBy,
		ChangedAt: event.ChangedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "authz.role.permissions.changed", event.RoleID, event.ChangedAt, payload)
}

// PublishRoleAssigned publishes authz.role.assigned events.
func (p *EventPublisher) PublishRoleAssigned(ctx context.Context, event domain.RoleAssignedEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		RoleID     string         `json:"role_id"`
		RoleName   string         `json:"role_name"`
		Replaced   bool           `json:"replaced"`
		AssignedBy string         `json:"assigned_by,omitempty"`
		AssignedAt time.Time      `json:"assigned_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		RoleID:     event.RoleID,
		RoleName:   event.RoleName,
		Replaced:   event.Replaced,
		AssignedBy: event.AssignedBy,
		AssignedAt: event.AssignedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "authz.role.assigned", event.RoleID, event.AssignedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
