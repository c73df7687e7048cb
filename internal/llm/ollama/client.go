// Package ollama provides an llm.Client backed by Ollama-compatible HTTP endpoints.
package ollama

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

	"github.com/pagemill/pagemill/internal/llm"
)

const (
	// DefaultBaseURL is the default Ollama endpoint
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is used for both embeddings and completions when unset
	DefaultModel = "llama3.2:1b"

	defaultTimeout = 120 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyEmbedding is returned when the endpoint returns no vector
	ErrEmptyEmbedding = errors.New("ollama returned an empty embedding")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Client talks to an Ollama server over HTTP
type Client struct {
	baseURL         string
	embeddingModel  string
	completionModel string
	dimensions      int
	httpClient      *http.Client
}

var _ llm.Client = (*Client)(nil)

type Config struct {
	BaseURL         string
	EmbeddingModel  string
	CompletionModel string
	// EmbeddingDimensions, when positive, is checked against every returned vector
	EmbeddingDimensions int
	Timeout             time.Duration
}

// NewClient creates an Ollama client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultModel
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
		dimensions:      cfg.EmbeddingDimensions,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// GenerateEmbedding calls /api/embeddings for the given text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var resp embeddingResponse
	err := c.post(ctx, "/api/embeddings", embeddingRequest{
		Model:  c.embeddingModel,
		Prompt: text,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	if c.dimensions > 0 && len(resp.Embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(resp.Embedding))
	}

	return resp.Embedding, nil
}

// Complete calls /api/chat with streaming disabled.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if req.Prompt == "" {
		return "", ErrEmptyText
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	options := map[string]any{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var resp chatResponse
	err := c.post(ctx, "/api/chat", chatRequest{
		Model:    c.completionModel,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	return resp.Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama: %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
