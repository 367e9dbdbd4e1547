package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

const emailConsumerName = "notification-emails"

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type emailSender interface {
	SendNotificationEmail(ctx context.Context, to, displayName string, event Event) error
}

type eventDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	EventDedupeKey(consumer, eventID string) string
}

// Consumer turns notification-created events into best-effort emails.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	users        userFinder
	mailer       emailSender
	dedupe       eventDeduper
	dedupeTTL    time.Duration
	logg         *logger.Logger
}

// NewConsumer builds the email fan-out consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, users userFinder, mailer emailSender, dedupe eventDeduper, dedupeTTL time.Duration, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		users:        users,
		mailer:       mailer,
		dedupe:       dedupe,
		dedupeTTL:    dedupeTTL,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != EventTypeNotificationCreated {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode notification event", err)
		return processResult{ack: true}
	}
	if event.EventID == "" || event.RecipientID == uuid.Nil {
		c.logg.Info(logCtx, "dropping event with missing identifiers")
		return processResult{ack: true}
	}

	dedupeKey := c.dedupe.EventDedupeKey(emailConsumerName, event.EventID)
	fresh, err := c.dedupe.SetNX(ctx, dedupeKey, time.Now().UTC().Format(time.RFC3339), c.dedupeTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedupe check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":  event.EventID,
		"recipient": event.RecipientID.String(),
	})

	if err := c.handleEvent(ctx, event, logCtx); err != nil {
		c.logg.Error(logCtx, "notification email failed", err)
		_ = c.dedupe.Del(ctx, dedupeKey)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, event Event, logCtx context.Context) error {
	if event.Type != enums.NotificationTypeWishlist {
		c.logg.Info(logCtx, "no email configured for this notification type")
		return nil
	}

	user, err := c.users.FindByID(ctx, event.RecipientID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if !user.IsActive {
		c.logg.Info(logCtx, "recipient inactive, skipping email")
		return nil
	}

	if err := c.mailer.SendNotificationEmail(ctx, user.Email, user.DisplayName, event); err != nil {
		return err
	}
	c.logg.Info(logCtx, "notification email sent")
	return nil
}
