package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienlmr/gameshelf-backend/internal/notifications"
	"github.com/julienlmr/gameshelf-backend/pkg/config"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

func newTestMailer(t *testing.T, handler http.HandlerFunc) *Mailer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	m, err := New(Params{
		Config: config.SendgridConfig{
			APIKey:      "sg-test-key",
			DefaultFrom: "noreply@gameshelf.app",
		},
		Timeout: 5 * time.Second,
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestSendNotificationEmail(t *testing.T) {
	var captured sendgridMail
	mailer := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sg-test-key" {
			t.Errorf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	event := notifications.Event{Type: enums.NotificationTypeWishlist, GameTitle: "Chrono Trigger"}
	if err := mailer.SendNotificationEmail(context.Background(), "julien@example.com", "Julien", event); err != nil {
		t.Fatalf("SendNotificationEmail: %v", err)
	}

	if len(captured.Personalizations) != 1 || len(captured.Personalizations[0].To) != 1 {
		t.Fatalf("unexpected personalizations %+v", captured.Personalizations)
	}
	if captured.Personalizations[0].To[0].Email != "julien@example.com" {
		t.Fatalf("unexpected recipient %+v", captured.Personalizations[0].To[0])
	}
	if !strings.Contains(captured.Subject, "Chrono Trigger") {
		t.Fatalf("expected game title in subject, got %q", captured.Subject)
	}
	if len(captured.Content) != 1 || !strings.Contains(captured.Content[0].Value, "Hi Julien") {
		t.Fatalf("unexpected content %+v", captured.Content)
	}
	if captured.From.Email != "noreply@gameshelf.app" {
		t.Fatalf("unexpected from %+v", captured.From)
	}
}

func TestSendNotificationEmailUpstreamFailure(t *testing.T) {
	mailer := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"maximum credits exceeded"}]}`, http.StatusTooManyRequests)
	})

	err := mailer.SendNotificationEmail(context.Background(), "julien@example.com", "Julien", notifications.Event{})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Params{Config: config.SendgridConfig{DefaultFrom: "noreply@gameshelf.app"}})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}

	_, err = New(Params{Config: config.SendgridConfig{APIKey: "sg-key"}})
	if err == nil {
		t.Fatal("expected error for missing from address")
	}
}
