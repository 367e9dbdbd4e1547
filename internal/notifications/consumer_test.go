package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

type stubUserFinder struct {
	user *models.User
	err  error
}

func (s *stubUserFinder) FindByID(_ context.Context, _ uuid.UUID) (*models.User, error) {
	return s.user, s.err
}

type recordingMailer struct {
	sent []Event
	to   []string
	err  error
}

func (r *recordingMailer) SendNotificationEmail(_ context.Context, to, _ string, event Event) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, event)
	r.to = append(r.to, to)
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
	dels []string
	err  error
}

func (f *fakeDeduper) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDeduper) Del(_ context.Context, keys ...string) error {
	f.dels = append(f.dels, keys...)
	return nil
}

func (f *fakeDeduper) EventDedupeKey(consumer, eventID string) string {
	return "gs:dedupe:" + consumer + ":" + eventID
}

func buildMessage(t *testing.T, event Event) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": EventTypeNotificationCreated,
		},
	}
}

func newTestConsumer(users userFinder, mailer emailSender, dedupe eventDeduper) *Consumer {
	return &Consumer{
		users:     users,
		mailer:    mailer,
		dedupe:    dedupe,
		dedupeTTL: time.Hour,
		logg:      logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
	}
}

func TestConsumerSendsWishlistEmail(t *testing.T) {
	recipient := uuid.New()
	users := &stubUserFinder{user: &models.User{ID: recipient, Email: "owner@example.com", DisplayName: "Julien", IsActive: true}}
	mailer := &recordingMailer{}
	consumer := newTestConsumer(users, mailer, &fakeDeduper{})

	event := Event{
		EventID:        uuid.NewString(),
		NotificationID: uuid.New(),
		RecipientID:    recipient,
		Type:           enums.NotificationTypeWishlist,
		GameTitle:      "Chrono Trigger",
	}

	result := consumer.process(context.Background(), buildMessage(t, event))
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].GameTitle != "Chrono Trigger" {
		t.Fatal("expected one email for the wishlist event")
	}
	if mailer.to[0] != "owner@example.com" {
		t.Fatalf("unexpected recipient %q", mailer.to[0])
	}
}

func TestConsumerSkipsDuplicateEvents(t *testing.T) {
	recipient := uuid.New()
	users := &stubUserFinder{user: &models.User{ID: recipient, Email: "owner@example.com", IsActive: true}}
	mailer := &recordingMailer{}
	consumer := newTestConsumer(users, mailer, &fakeDeduper{})

	event := Event{
		EventID:     uuid.NewString(),
		RecipientID: recipient,
		Type:        enums.NotificationTypeWishlist,
	}

	first := consumer.process(context.Background(), buildMessage(t, event))
	second := consumer.process(context.Background(), buildMessage(t, event))
	if !first.ack || !second.ack {
		t.Fatal("expected both deliveries acked")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected exactly one email, got %d", len(mailer.sent))
	}
}

func TestConsumerNacksAndReleasesDedupeOnSendFailure(t *testing.T) {
	recipient := uuid.New()
	users := &stubUserFinder{user: &models.User{ID: recipient, Email: "owner@example.com", IsActive: true}}
	mailer := &recordingMailer{err: errors.New("sendgrid unavailable")}
	dedupe := &fakeDeduper{}
	consumer := newTestConsumer(users, mailer, dedupe)

	event := Event{
		EventID:     uuid.NewString(),
		RecipientID: recipient,
		Type:        enums.NotificationTypeWishlist,
	}

	result := consumer.process(context.Background(), buildMessage(t, event))
	if !result.nack {
		t.Fatal("expected nack on send failure")
	}
	if len(dedupe.dels) != 1 {
		t.Fatal("expected dedupe key released so the retry can send")
	}
}

func TestConsumerIgnoresOtherNotificationTypes(t *testing.T) {
	recipient := uuid.New()
	mailer := &recordingMailer{}
	consumer := newTestConsumer(&stubUserFinder{}, mailer, &fakeDeduper{})

	event := Event{
		EventID:     uuid.NewString(),
		RecipientID: recipient,
		Type:        enums.NotificationTypeFriend,
	}

	result := consumer.process(context.Background(), buildMessage(t, event))
	if !result.ack {
		t.Fatal("expected ack for unhandled type")
	}
	if len(mailer.sent) != 0 {
		t.Fatal("expected no email for friend notifications")
	}
}
