package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "authz",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "authz-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func TestPublishRoleCreated(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	event := domain.RoleCreatedEvent{
		EventID:   "event-123",
		RoleID:    "role-456",
		RoleName:  "auditor",
		CreatedAt: createdAt,
		Metadata:  map[string]any{"permissions": []string{"document:read"}},
	}

	if err := publisher.PublishRoleCreated(context.Background(), event); err != nil {
		t.Fatalf("PublishRoleCreated returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "authz.role.created" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_id"]; got != "event-123" {
			t.Fatalf("unexpected event_id: %v", got)
		}
		if got := envelope["event_type"]; got != "authz.role.created" {
			t.Fatalf("unexpected event_type: %v", got)
		}
		if got := envelope["role_id"]; got != "role-456" {
			t.Fatalf("unexpected role_id: %v", got)
		}
		if got := envelope["version"]; got != "1.0" {
			t.Fatalf("unexpected schema version: %v", got)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not an object: %T", envelope["payload"])
		}
		if got := payload["role_name"]; got != "auditor" {
			t.Fatalf("unexpected role_name: %v", got)
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not an object: %T", envelope["metadata"])
		}
		if got := metadata["service"]; got != "authz-service" {
			t.Fatalf("unexpected service metadata: %v", got)
		}
	default:
		t.Fatal("expected a message on the producer input channel")
	}
}

func TestPublishRoleDeletedCarriesClearedUsers(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.RoleDeletedEvent{
		EventID:        "event-321",
		RoleID:         "role-456",
		RoleName:       "auditor",
		DeletedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ClearedUserIDs: []string{"user-1", "user-2"},
	}

	if err := publisher.PublishRoleDeleted(context.Background(), event); err != nil {
		t.Fatalf("PublishRoleDeleted returned error: %v", err)
	}

	msg := <-asyncProducer.input
	bytes, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode returned error: %v", err)
	}

	var envelope struct {
		EventType string `json:"event_type"`
		Payload   struct {
			ClearedUserIDs []string `json:"cleared_user_ids"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(bytes, &envelope); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}

	if envelope.EventType != "authz.role.deleted" {
		t.Fatalf("unexpected event_type: %s", envelope.EventType)
	}
	if len(envelope.Payload.ClearedUserIDs) != 2 {
		t.Fatalf("expected 2 cleared users, got %d", len(envelope.Payload.ClearedUserIDs))
	}
}

func TestPublishBlocksUntilContextCancelled(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	// Fill the buffered input channel so the next publish has nowhere to go.
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := publisher.PublishRoleAssigned(ctx, domain.RoleAssignedEvent{
		EventID:    "event-999",
		UserID:     "user-1",
		RoleID:     "role-1",
		RoleName:   "user",
		AssignedAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected context error when producer input is saturated")
	}
}
