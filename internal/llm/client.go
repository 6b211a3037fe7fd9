package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/regimen-health/regimen/internal/config"
	apperrors "github.com/regimen-health/regimen/internal/errors"
)

// Client provides LLM API access against an OpenAI-compatible endpoint
type Client struct {
	provider config.Provider
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*ChatResponse]
}

// NewClient creates a new LLM client
func NewClient(provider config.Provider) *Client {
	timeout := provider.Timeout
	if timeout == 0 {
		timeout = 60
	}

	breaker := gobreaker.NewCircuitBreaker[*ChatResponse](gobreaker.Settings{
		Name:    "llm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		provider: provider,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		breaker: breaker,
	}
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

// ResponseFormat constrains the model's output shape
type ResponseFormat struct {
	Type string `json:"type"` // text, json_object
}

// ChatRequest represents an API request
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents an API response
type ChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatCompletion sends a chat completion request through the circuit breaker
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.provider.APIKey == "" {
		return nil, apperrors.ErrProviderNotConfigured
	}

	resp, err := c.breaker.Execute(func() (*ChatResponse, error) {
		return c.doChatCompletion(ctx, req)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.Wrap(err, apperrors.ErrProviderUnavailable.Code, "LLM circuit open")
	}
	return resp, err
}

func (c *Client) doChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.provider.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.provider.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// JSONChat sends a system+user exchange constrained to a JSON object response
// and returns the raw content string
func (c *Client) JSONChat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	req := ChatRequest{
		Model: c.provider.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:      c.provider.MaxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return resp.Choices[0].Message.Content, nil
}
