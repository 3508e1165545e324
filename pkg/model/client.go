// Package model is the external adapter layer for language-model providers.
// Everything nondeterministic lives here: network calls, retries, and
// wall-clock latency. The kernel never imports this package.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Reply is one model response.
type Reply struct {
	Content   string
	Tokens    int
	LatencyMS int64
}

// Client is the provider interface. Complete sends a system and user prompt
// and returns the assistant's reply.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Reply, error)
	ModelName() string
	Provider() string
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed on retry.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	Endpoint   string // base URL, e.g. https://api.openai.com/v1
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Config holds explicit client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
}

// NewOpenAIClient creates a client from explicit config.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("KILN_MODEL_ENDPOINT is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("KILN_MODEL_API_KEY is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("KILN_MODEL_NAME is required")
	}
	return &OpenAIClient{
		Endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// NewOpenAIClientFromEnv creates a client from environment variables:
//
//	KILN_MODEL_ENDPOINT – required
//	KILN_MODEL_API_KEY  – required
//	KILN_MODEL_NAME     – required
func NewOpenAIClientFromEnv() (*OpenAIClient, error) {
	return NewOpenAIClient(Config{
		Endpoint: os.Getenv("KILN_MODEL_ENDPOINT"),
		APIKey:   os.Getenv("KILN_MODEL_API_KEY"),
		Model:    os.Getenv("KILN_MODEL_NAME"),
	})
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ModelName returns the model name for provenance tracking.
func (c *OpenAIClient) ModelName() string { return c.Model }

// Provider identifies the adapter kind.
func (c *OpenAIClient) Provider() string { return "openai" }

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Reply, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("API error [%s]: %s", chat.Error.Code, chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &Reply{
		Content:   chat.Choices[0].Message.Content,
		Tokens:    chat.Usage.TotalTokens,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}
