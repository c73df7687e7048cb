//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagemill/pagemill/internal/api/handlers"
	"github.com/pagemill/pagemill/internal/jobs"
	"github.com/pagemill/pagemill/internal/llm"
	"github.com/pagemill/pagemill/internal/pdf"
	"github.com/pagemill/pagemill/internal/repository"
	"github.com/pagemill/pagemill/internal/server"
	"github.com/pagemill/pagemill/internal/service"
	"github.com/pagemill/pagemill/internal/testutil"
)

const testAPIToken = "e2e-test-token"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Extractor    *fakeExtractor
	LLM          *fakeLLM
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running server backed by deterministic extraction and embeddings.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	extractor := newFakeExtractor()
	llmClient := &fakeLLM{answer: "the policy allows refunds within 30 days"}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, extractor, llmClient, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Extractor:    extractor,
		LLM:          llmClient,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, int, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, int, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, int, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return &apiResp, resp.StatusCode, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, extractor *fakeExtractor, llmClient *fakeLLM, port int) (string, func()) {
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	indexJobRepo := repository.NewIndexJobRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	ingestSvc := service.NewIngestService(docRepo, txRunner, extractor, llmClient)
	answerSvc := service.NewAnswerService(chunkRepo, llmClient, "fake", "fake-model",
		service.WithQueryLog(queryLogRepo))
	docSvc := service.NewDocumentService(docRepo, nil)

	indexProcessor := jobs.NewIndexWorker(indexJobRepo, chunkRepo, docRepo, llmClient)
	indexWorker := jobs.NewWorker(indexProcessor, 250*time.Millisecond)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	go indexWorker.Start(workerCtx)

	router := server.NewRouter(server.RouterConfig{
		APIToken:        testAPIToken,
		IngestHandler:   handlers.NewIngestHandler(ingestSvc),
		QueryHandler:    handlers.NewQueryHandler(answerSvc),
		DocumentHandler: handlers.NewDocumentHandler(docSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		workerCancel()
		indexWorker.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// fakeExtractor serves canned page text keyed by file path so tests do not
// depend on real PDF fixtures.
type fakeExtractor struct {
	files map[string]*pdf.Result
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{files: map[string]*pdf.Result{}}
}

// AddFile registers a fake PDF with one page per given text.
func (f *fakeExtractor) AddFile(path, sha string, pageTexts ...string) {
	pages := make([]pdf.Page, len(pageTexts))
	for i, text := range pageTexts {
		pages[i] = pdf.Page{Number: i + 1, Text: text}
	}
	name := path[strings.LastIndex(path, "/")+1:]
	f.files[path] = &pdf.Result{
		SourcePath: path,
		Filename:   name,
		SHA256:     sha,
		Pages:      pages,
	}
}

func (f *fakeExtractor) ExtractFile(path string) (*pdf.Result, error) {
	result, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("unregistered test file %s", path)
	}
	return result, nil
}

func (f *fakeExtractor) ListDirectory(dir string) ([]string, error) {
	var paths []string
	for path := range f.files {
		if strings.HasPrefix(path, dir+"/") {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// fakeLLM maps text to a single-axis embedding derived from its first word, so
// identical leading words land on identical vectors and similarity search is
// deterministic.
type fakeLLM struct {
	answer string
}

func (f *fakeLLM) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	first := strings.ToLower(strings.TrimSpace(text))
	if i := strings.IndexFunc(first, func(r rune) bool { return r == ' ' || r == '\n' }); i > 0 {
		first = first[:i]
	}
	h := fnv.New32a()
	h.Write([]byte(first))
	v := make([]float32, 3072)
	v[int(h.Sum32())%3072] = 1
	return v, nil
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	// Variant generation requests carry no system prompt
	if req.System == "" {
		return "1. variant one\n2. variant two\n3. variant three", nil
	}
	return f.answer, nil
}
