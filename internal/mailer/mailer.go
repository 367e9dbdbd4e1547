package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienlmr/gameshelf-backend/internal/notifications"
	"github.com/julienlmr/gameshelf-backend/pkg/config"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Mailer sends notification emails through the Sendgrid v3 mail API. Delivery
// failures surface as dependency errors so the consumer can nack and let the
// subscription redeliver.
type Mailer struct {
	http    *http.Client
	baseURL string
	apiKey  string
	from    string
}

type Params struct {
	Config  config.SendgridConfig
	Timeout time.Duration
	// BaseURL overrides the Sendgrid endpoint, used in tests.
	BaseURL string
}

func New(params Params) (*Mailer, error) {
	if strings.TrimSpace(params.Config.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if strings.TrimSpace(params.Config.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from address is required")
	}
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mailer{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  params.Config.APIKey,
		from:    params.Config.DefaultFrom,
	}, nil
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridMail struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

// SendNotificationEmail tells the wishlist owner that someone wants to buy a
// game for them.
func (m *Mailer) SendNotificationEmail(ctx context.Context, to, displayName string, event notifications.Event) error {
	title := event.GameTitle
	if title == "" {
		title = "a game"
	}

	greeting := "Hi"
	if displayName != "" {
		greeting = "Hi " + displayName
	}
	body := fmt.Sprintf(
		"%s,\n\nSomeone wants to buy %s from your wishlist. "+
			"Open GameShelf to validate or refuse the purchase.\n",
		greeting, title,
	)

	mail := sendgridMail{
		Personalizations: []sendgridPersonalization{{
			To: []sendgridAddress{{Email: to, Name: displayName}},
		}},
		From:    sendgridAddress{Email: m.from, Name: "GameShelf"},
		Subject: fmt.Sprintf("Someone wants to buy %s for you", title),
		Content: []sendgridContent{{Type: "text/plain", Value: body}},
	}

	payload, err := json.Marshal(mail)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode mail payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build mail request")
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call sendgrid")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("sendgrid returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	return nil
}
