package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const sessionTopicPrefix = "session."

// Bus fans session events out to in-process subscribers over a watermill
// go channel, and copies audited events to an optional external publisher.
type Bus struct {
	pubSub     *gochannel.GoChannel
	audit      message.Publisher
	auditTopic string
	logger     *slog.Logger
}

type BusConfig struct {
	// Audit receives audited events. Nil disables the audit trail.
	Audit      message.Publisher
	AuditTopic string
	Buffer     int64
}

func NewBus(config BusConfig, logger *slog.Logger) *Bus {
	if config.Buffer <= 0 {
		config.Buffer = 64
	}
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: config.Buffer},
		watermill.NewSlogLogger(logger),
	)
	return &Bus{
		pubSub:     pubSub,
		audit:      config.Audit,
		auditTopic: config.AuditTopic,
		logger:     logger,
	}
}

// NewKafkaAuditPublisher builds the external audit sink.
func NewKafkaAuditPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return publisher, nil
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	fillDefaults(&event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("session_id", event.SessionID)

	if err := b.pubSub.Publish(sessionTopicPrefix+event.SessionID, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if b.audit != nil && event.IsAudited() {
		// the go channel owns msg now, so the audit copy is a new message
		auditMsg := message.NewMessage(event.ID, payload)
		auditMsg.Metadata.Set("type", event.Type)
		auditMsg.Metadata.Set("session_id", event.SessionID)
		if err := b.audit.Publish(b.auditTopic, auditMsg); err != nil {
			b.logger.Error("Failed to publish audit event", "type", event.Type, "session_id", event.SessionID, "error", err)
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, sessionTopicPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("Dropping malformed event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	var firstErr error
	if err := b.pubSub.Close(); err != nil {
		firstErr = err
	}
	if b.audit != nil {
		if err := b.audit.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func fillDefaults(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Source == "" {
		event.Source = Source
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}
