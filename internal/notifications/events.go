package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// EventTypeNotificationCreated tags messages emitted when a notification row
// is inserted, so downstream workers can fan out emails.
const EventTypeNotificationCreated = "notification.created"

const defaultPublishTimeout = 10 * time.Second

// Event is the pubsub payload for a created notification.
type Event struct {
	EventID        string                 `json:"event_id"`
	NotificationID uuid.UUID              `json:"notification_id"`
	RecipientID    uuid.UUID              `json:"recipient_id"`
	Type           enums.NotificationType `json:"type"`
	GameTitle      string                 `json:"game_title,omitempty"`
	OccurredAt     time.Time              `json:"occurred_at"`
}

type publishTopic interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

// Publisher emits notification events to the notification topic.
type Publisher struct {
	topic publishTopic
	logg  *logger.Logger
}

// NewPublisher builds an event publisher bound to the notification topic.
func NewPublisher(topic publishTopic, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("notification topic required")
	}
	return &Publisher{topic: topic, logg: logg}, nil
}

// PublishCreated sends a created event and waits for broker acknowledgment.
// Callers invoke it after their transaction commits; a publish failure only
// delays the email, the notification row is already visible.
func (p *Publisher) PublishCreated(ctx context.Context, event Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode notification event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":   event.EventID,
			"event_type": EventTypeNotificationCreated,
			"recipient":  event.RecipientID.String(),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish notification event: %w", err)
	}

	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{
			"event_id":        event.EventID,
			"notification_id": event.NotificationID.String(),
			"type":            string(event.Type),
		})
		p.logg.Info(logCtx, "notification event published")
	}
	return nil
}
