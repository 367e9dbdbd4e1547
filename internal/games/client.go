package games

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienlmr/gameshelf-backend/pkg/config"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

const maxCatalogResponseBytes = 1 << 20

// CatalogGame is the normalized shape returned by the external game catalog.
type CatalogGame struct {
	ExternalID  string  `json:"id"`
	Title       string  `json:"title"`
	CoverURL    *string `json:"cover_url"`
	ConsoleName *string `json:"console_name"`
	Genre       *string `json:"genre"`
	ReleaseYear *int    `json:"release_year"`
}

type catalogSearchResponse struct {
	Results []CatalogGame `json:"results"`
}

// CatalogClient queries the upstream game catalog API.
type CatalogClient struct {
	http *http.Client
	cfg  config.GameAPIConfig
}

// NewCatalogClient builds a catalog client from the API configuration.
func NewCatalogClient(cfg config.GameAPIConfig) (*CatalogClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("game api base url is required")
	}
	return &CatalogClient{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}, nil
}

// Search looks up games matching the query in the upstream catalog.
func (c *CatalogClient) Search(ctx context.Context, query string, limit int) ([]CatalogGame, error) {
	endpoint := fmt.Sprintf("%s/v1/games?search=%s&limit=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.QueryEscape(query),
		url.QueryEscape(strconv.Itoa(limit)),
	)

	var payload catalogSearchResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// Lookup fetches a single game by its catalog identifier.
func (c *CatalogClient) Lookup(ctx context.Context, externalID string) (*CatalogGame, error) {
	endpoint := fmt.Sprintf("%s/v1/games/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(externalID),
	)

	var payload CatalogGame
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call game catalog")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "game not found in catalog")
	case resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeDependency, "game catalog rate limited")
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("game catalog returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, maxCatalogResponseBytes))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read catalog response")
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}
	return nil
}
