package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"FilingScanner/internal/config"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Model != "test-model" {
			t.Errorf("unexpected model: %q", payload.Model)
		}
		if len(payload.Messages) != 2 || payload.Messages[1].Content != "Item 2.02 Results." {
			t.Errorf("unexpected messages: %+v", payload.Messages)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"event_type\":\"earnings\",\"sentiment\":1,\"event_summary\":\"beat\"}"}}]}`))
	}))
	defer server.Close()

	a := NewChatGPTAnalyzer(config.AnalysisConfig{
		Endpoint: server.URL,
		Model:    "test-model",
		APIKey:   "test-key",
	})

	result, err := a.Analyze(context.Background(), "Item 2.02 Results.")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result.EventType != "earnings" || result.Sentiment != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer server.Close()

	a := NewChatGPTAnalyzer(config.AnalysisConfig{
		Endpoint: server.URL,
		Model:    "test-model",
		APIKey:   "test-key",
	})

	if _, err := a.Analyze(context.Background(), "text"); err == nil {
		t.Fatal("expected an error for a server failure")
	}
}

func TestAnalyzeMisconfigured(t *testing.T) {
	t.Parallel()

	a := NewChatGPTAnalyzer(config.AnalysisConfig{})
	if _, err := a.Analyze(context.Background(), "text"); err == nil {
		t.Fatal("expected an error when no credentials are set")
	}
}
