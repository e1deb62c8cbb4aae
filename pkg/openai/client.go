// Package openai is a small client for the OpenAI-compatible embeddings and
// chat completions endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.openai.com/v1"
	defaultChatModel            = "gpt-4.1-mini"
	defaultEmbeddingModel       = "text-embedding-3-small"
	defaultTimeout              = 30 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("openai api key is required")

// Message is one chat turn.
type Message struct {
	Role    enums.ChatRole `json:"role"`
	Content string         `json:"content"`
}

// Client calls the embeddings and chat completions APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithChatModel overrides the chat completion model.
func WithChatModel(model string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			c.chatModel = trimmed
		}
	}
}

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			c.embeddingModel = trimmed
		}
	}
}

// NewClient builds a client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:         trimmedKey,
		baseURL:        defaultBaseURL,
		chatModel:      defaultChatModel,
		embeddingModel: defaultEmbeddingModel,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "embedding provider not configured")
	}

	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", embeddingRequest{Input: []string{text}, Model: c.embeddingModel}, &resp, "embedding"); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "embedding provider returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends messages to the chat model and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeProvider, "chat provider not configured")
	}
	if len(messages) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "at least one message is required")
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", chatRequest{Model: c.chatModel, Messages: messages}, &resp, "chat"); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeProvider, "chat provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any, kind string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("marshal %s request", kind))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("build %s request", kind))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("%s provider request failed", kind))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeProvider,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			fmt.Sprintf("%s provider returned status %d", kind, resp.StatusCode),
		).WithDetails(map[string]any{"status": resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("decode %s response", kind))
	}
	return nil
}
