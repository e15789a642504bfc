// Package ai implements the Evaluator port against Claude- and
// OpenAI-compatible HTTP APIs.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

const (
	defaultClaudeEndpoint = "https://api.anthropic.com/v1/messages"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

	anthropicVersion = "2023-06-01"
	maxTokens        = 2048
)

// Config selects and authenticates one AI provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	Endpoint string
}

// NewClient builds an evaluator for the configured provider.
func NewClient(cfg Config) (ports.Evaluator, error) {
	switch cfg.Provider {
	case "claude":
		return newClaudeClient(cfg), nil
	case "openai":
		return newOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// ClaudeClient calls the Anthropic messages API.
type ClaudeClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Evaluator = (*ClaudeClient)(nil)

func newClaudeClient(cfg Config) *ClaudeClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultClaudeEndpoint
	}
	return &ClaudeClient{
		endpoint:   endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Evaluate posts the prompt as a single user message and parses the reply.
func (c *ClaudeClient) Evaluate(ctx context.Context, prompt string) (domain.Evaluation, error) {
	if c.apiKey == "" || c.model == "" {
		return domain.Evaluation{}, fmt.Errorf("claude client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("marshal claude payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("call claude: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.Evaluation{}, apiError("claude", resp)
	}

	var reply struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return domain.Evaluation{}, fmt.Errorf("decode claude response: %w", err)
	}

	var text strings.Builder
	for _, block := range reply.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return ParseEvaluation(text.String())
}

// OpenAIClient calls the chat completions API.
type OpenAIClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Evaluator = (*OpenAIClient)(nil)

func newOpenAIClient(cfg Config) *OpenAIClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	return &OpenAIClient{
		endpoint:   endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Evaluate posts the prompt as a single user message and parses the reply.
func (c *OpenAIClient) Evaluate(ctx context.Context, prompt string) (domain.Evaluation, error) {
	if c.apiKey == "" || c.model == "" {
		return domain.Evaluation{}, fmt.Errorf("openai client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.Evaluation{}, apiError("openai", resp)
	}

	var reply struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return domain.Evaluation{}, fmt.Errorf("decode openai response: %w", err)
	}

	text := ""
	if len(reply.Choices) > 0 {
		text = reply.Choices[0].Message.Content
	}

	return ParseEvaluation(text)
}

func apiError(provider string, resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s error %s: %s", provider, resp.Status, strings.TrimSpace(string(payload)))
}
