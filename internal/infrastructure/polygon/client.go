package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FilingScanner/internal/domain"
	"FilingScanner/internal/ports"
)

// Client implements ports.Enricher against a market reference API. It is
// a separate upstream with its own budget, so it does not go through the
// registry rate limiter.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Enricher = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// LookupEntity resolves a filer's ticker, market cap and industry code
// from its CIK identifier.
func (c *Client) LookupEntity(ctx context.Context, cik string) (domain.EntityMetadata, error) {
	var meta domain.EntityMetadata

	var resp struct {
		Results struct {
			Ticker    string  `json:"ticker"`
			MarketCap float64 `json:"market_cap"`
			SICCode   string  `json:"sic_code"`
		} `json:"results"`
	}

	path := fmt.Sprintf("/v3/reference/tickers?cik=%s", url.QueryEscape(cik))
	if err := c.get(ctx, path, &resp); err != nil {
		return meta, err
	}

	meta.Ticker = resp.Results.Ticker
	meta.MarketCap = resp.Results.MarketCap
	meta.IndustryCode = resp.Results.SICCode
	return meta, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
