package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FilingScanner/internal/config"
	"FilingScanner/internal/domain"
	"FilingScanner/internal/ports"
)

// ChatGPTAnalyzer implements ports.Analyzer backed by OpenAI-compatible
// chat-completion APIs. The model is instructed to answer with a single
// JSON object matching domain.AnalysisResult.
type ChatGPTAnalyzer struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Analyzer = (*ChatGPTAnalyzer)(nil)

// NewChatGPTAnalyzer builds an analyzer from configuration.
func NewChatGPTAnalyzer(cfg config.AnalysisConfig) *ChatGPTAnalyzer {
	return &ChatGPTAnalyzer{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Analyze posts the section text as a user message and decodes the
// structured JSON reply.
func (c *ChatGPTAnalyzer) Analyze(ctx context.Context, text string) (domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return result, fmt.Errorf("analyzer misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": text},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return result, fmt.Errorf("marshal analysis payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("analyze section: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return result, fmt.Errorf("analyzer error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return result, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return result, fmt.Errorf("empty completion")
	}

	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return result, fmt.Errorf("decode analysis result: %w", err)
	}

	return result, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You analyze disclosure filing sections and respond with a single JSON object."
	}
	return prompt
}
