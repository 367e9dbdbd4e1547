package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienlmr/gameshelf-backend/pkg/config"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, attempts int) *PriceClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewPriceClient(config.PriceAPIConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		MaxAttempts: attempts,
	})
	if err != nil {
		t.Fatalf("NewPriceClient: %v", err)
	}
	return client
}

func TestFetchParsesQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/prices/chrono-trigger" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"loose_price":"42.50","complete_price":"88.00","new_price":"120.00","currency":"EUR"}`))
	}, 3)

	quote, err := client.Fetch(context.Background(), "chrono-trigger")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if quote.LoosePrice.String() != "42.5" {
		t.Fatalf("unexpected loose price %s", quote.LoosePrice)
	}
	if quote.Currency != "EUR" {
		t.Fatalf("unexpected currency %s", quote.Currency)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"loose_price":"10.00","complete_price":"20.00","new_price":"30.00"}`))
	}, 3)

	quote, err := client.Fetch(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Fetch after retries: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if quote.Currency != "EUR" {
		t.Fatalf("expected default currency, got %q", quote.Currency)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}, 3)

	_, err := client.Fetch(context.Background(), "unknown")
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	_, err := client.Fetch(context.Background(), "g1")
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
