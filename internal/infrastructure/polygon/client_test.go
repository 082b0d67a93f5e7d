package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupEntity(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/reference/tickers" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cik"); got != "0000123456" {
			t.Errorf("unexpected cik: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}

		_, _ = w.Write([]byte(`{"results":{"ticker":"ACME","market_cap":1234.5,"sic_code":"7372"}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key")

	meta, err := c.LookupEntity(context.Background(), "0000123456")
	if err != nil {
		t.Fatalf("LookupEntity error: %v", err)
	}
	if meta.Ticker != "ACME" {
		t.Fatalf("unexpected ticker: %q", meta.Ticker)
	}
	if meta.MarketCap != 1234.5 {
		t.Fatalf("unexpected market cap: %v", meta.MarketCap)
	}
	if meta.IndustryCode != "7372" {
		t.Fatalf("unexpected industry code: %q", meta.IndustryCode)
	}
}

func TestLookupEntityStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key")
	if _, err := c.LookupEntity(context.Background(), "0000999999"); err == nil {
		t.Fatal("expected an error for a missing entity")
	}
}
