// Package textgen provides the text-generation backends used to write the
// daily summary.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 2048

// ChatOptions configures a Chat backend.
type ChatOptions struct {
	// Name labels the backend in errors and logs, e.g. "deepseek".
	Name    string
	BaseURL string
	Model   string
	APIKey  string
	// Timeout bounds a whole request; zero means no client-side limit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Chat calls an OpenAI-compatible chat completions endpoint.
type Chat struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewChat creates a Chat backend posting to {BaseURL}/chat/completions.
func NewChat(opts ChatOptions) (*Chat, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("chat backend base URL is required")
	}
	if opts.Model == "" {
		return nil, errors.New("chat backend model is required")
	}
	if opts.Name == "" {
		opts.Name = "openai"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Chat{
		name:     opts.Name,
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		model:    opts.Model,
		apiKey:   opts.APIKey,
		client:   &http.Client{Timeout: opts.Timeout},
		logger:   opts.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Stream    bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
}

// Complete sends one system + user exchange and returns the trimmed reply.
func (c *Chat) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending chat completion", "backend", c.name, "model", c.model)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Backend: c.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s response contained no choices", c.name)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
