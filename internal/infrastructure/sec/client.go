package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"FilingScanner/internal/ratelimit"
)

// RequestError is returned for both non-success HTTP statuses and
// network-level failures. Status is zero when the request never
// produced a response.
type RequestError struct {
	URL    string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client performs rate-limited requests against the registry. Every call
// waits on the shared limiter before going out; retry policy is the
// caller's responsibility.
type Client struct {
	baseURL   string
	userAgent string
	limiter   *ratelimit.Limiter
	http      *http.Client
}

// NewClient wires the shared limiter and an HTTP client. A nil client
// gets a bounded per-request timeout.
func NewClient(baseURL, userAgent string, limiter *ratelimit.Limiter, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		limiter:   limiter,
		http:      httpClient,
	}
}

// BaseURL returns the registry root that relative document links resolve
// against.
func (c *Client) BaseURL() string { return c.baseURL }

// Fetch performs a rate-limited GET and returns the response body.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	body, err := c.get(ctx, rawURL, headers)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchJSON performs a rate-limited GET and decodes the JSON response
// into v.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, headers map[string]string, v any) error {
	body, err := c.get(ctx, rawURL, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}
	return body, nil
}

// FeedURL builds the paginated listing feed endpoint for a document type.
func FeedURL(baseURL, docType string, start, count int) (string, error) {
	parsed, err := url.Parse(baseURL + "/cgi-bin/browse-edgar")
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", baseURL, err)
	}

	query := parsed.Query()
	query.Set("action", "getcurrent")
	query.Set("type", docType)
	query.Set("company", "")
	query.Set("CIK", "")
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(count))
	query.Set("output", "atom")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
