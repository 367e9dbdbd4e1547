package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/julienlmr/gameshelf-backend/pkg/config"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

const maxPriceResponseBytes = 1 << 20

// Quote is the normalized answer from the auction price provider.
type Quote struct {
	LoosePrice    decimal.Decimal `json:"loose_price"`
	CompletePrice decimal.Decimal `json:"complete_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	Currency      string          `json:"currency"`
}

// PriceClient queries the auction price provider. Transient upstream failures
// are retried with fibonacci backoff up to the configured attempt count.
type PriceClient struct {
	http *http.Client
	cfg  config.PriceAPIConfig
}

// NewPriceClient builds a price client from the API configuration.
func NewPriceClient(cfg config.PriceAPIConfig) (*PriceClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("price api base url is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &PriceClient{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}, nil
}

// Fetch returns the current quote for a game identified by the provider's id.
func (c *PriceClient) Fetch(ctx context.Context, externalID string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/prices/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(externalID),
	)

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), retry.NewFibonacci(500*time.Millisecond))

	var quote Quote
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.getJSON(ctx, endpoint, &quote)
	})
	if err != nil {
		return nil, err
	}
	if quote.Currency == "" {
		quote.Currency = "EUR"
	}
	return &quote, nil
}

func (c *PriceClient) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build price request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call price provider"))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "no price listed for game")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("price provider returned %d", resp.StatusCode)))
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("price provider returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, maxPriceResponseBytes))
	if err != nil {
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read price response"))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode price response")
	}
	return nil
}
