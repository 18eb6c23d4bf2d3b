// Package llm implements the text-generation capability against
// OpenAI-compatible chat-completion APIs.
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

	"autoblogger/internal/ports"
)

const defaultRequestTimeout = 120 * time.Second

// Options configure the client.
type Options struct {
	Endpoint  string
	Model     string
	APIKey    string
	MaxTokens int // default per-call budget when the request sets none
	Timeout   time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	opts       Options
	httpClient *http.Client
}

var _ ports.TextGenerator = (*Client)(nil)

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate issues one chat completion and returns the text with its
// billed token count. Provider errors are returned as-is to the caller;
// the run-level retrier owns the retry decision.
func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (ports.Generation, error) {
	if c.opts.APIKey == "" || c.opts.Endpoint == "" || c.opts.Model == "" {
		return ports.Generation{}, fmt.Errorf("llm client misconfigured")
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}

	body, err := json.Marshal(chatRequest{
		Model:     c.opts.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return ports.Generation{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.Generation{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.Generation{}, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.Generation{}, fmt.Errorf("llm error %s: %s",
			resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.Generation{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return ports.Generation{}, fmt.Errorf("llm returned no choices")
	}

	tokens := decoded.Usage.TotalTokens
	if tokens == 0 {
		tokens = decoded.Usage.PromptTokens + decoded.Usage.CompletionTokens
	}

	return ports.Generation{
		Text:       decoded.Choices[0].Message.Content,
		TokensUsed: tokens,
	}, nil
}
