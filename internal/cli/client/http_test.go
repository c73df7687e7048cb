package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL, token string) *APIClient {
	return &APIClient{
		baseURL:    serverURL,
		apiToken:   token,
		httpClient: &http.Client{},
	}
}

func TestAPIClient_Post_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"answer":"ok"}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL, "secret-token")

	resp, err := api.Post("/api/v1/query", QueryRequest{Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Contains(t, string(resp.Data), "answer")
}

func TestAPIClient_Post_OmitsAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL, "")

	_, err := api.Post("/api/v1/ingest", IngestRequest{FilePath: "/tmp/a.pdf"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"document not found"}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL, "")

	_, err := api.Get("/api/v1/documents/missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "document not found", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL, "")

	_, err := api.Get("/health")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}
