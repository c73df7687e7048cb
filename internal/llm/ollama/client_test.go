package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/llm"
)

func TestGenerateEmbedding_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "hello world", req.Prompt)

		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, EmbeddingModel: "nomic-embed-text"})

	embedding, err := client.GenerateEmbedding(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embedding)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.GenerateEmbedding(context.Background(), "")
	assert.Equal(t, ErrEmptyText, err)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{0.1, 0.2, 0.3, 0.4}})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, EmbeddingDimensions: 3072})

	_, err := client.GenerateEmbedding(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	assert.Contains(t, err.Error(), "expected 3072, got 4")
}

func TestGenerateEmbedding_DimensionsUnsetSkipsCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{0.1, 0.2, 0.3, 0.4}})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	embedding, err := client.GenerateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, embedding, 4)
}

func TestGenerateEmbedding_EmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.GenerateEmbedding(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestGenerateEmbedding_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.GenerateEmbedding(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2:1b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.EqualValues(t, 1024, req.Options["num_predict"])

		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "The answer is 42."},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	answer, err := client.Complete(context.Background(), llm.CompletionRequest{
		System:    "You are helpful.",
		Prompt:    "What is the answer?",
		MaxTokens: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", answer)
}

func TestComplete_EmptyPrompt(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	assert.Equal(t, ErrEmptyText, err)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://ollama:11434/"})

	assert.Equal(t, "http://ollama:11434", client.baseURL)
	assert.Equal(t, DefaultModel, client.embeddingModel)
	assert.Equal(t, DefaultModel, client.completionModel)
}
