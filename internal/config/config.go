package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider names accepted in PAGEMILL_LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	// APIToken, when set, is required as a Bearer token on /api/v1 routes.
	APIToken string `envconfig:"API_TOKEN"`

	LLMProvider string `envconfig:"LLM_PROVIDER" default:"openai"`

	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel  string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-large"`
	OpenAICompletionModel string `envconfig:"OPENAI_COMPLETION_MODEL" default:"gpt-3.5-turbo"`

	OllamaBaseURL         string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaEmbeddingModel  string `envconfig:"OLLAMA_EMBEDDING_MODEL" default:"llama3.2:1b"`
	OllamaCompletionModel string `envconfig:"OLLAMA_COMPLETION_MODEL" default:"llama3.2:1b"`

	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"3072"`

	ChunkSize     int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap  int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	PDFDirectory  string `envconfig:"PDF_DIRECTORY" default:"./data/pdfs"`
	IngestWorkers int    `envconfig:"INGEST_WORKERS" default:"4"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"pagemill-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PAGEMILL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		log.Printf("invalid LLM provider %q, falling back to openai", cfg.LLMProvider)
		cfg.LLMProvider = ProviderOpenAI
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// EmbeddingModel returns the embedding model for the active provider.
func (c *Config) EmbeddingModel() string {
	if c.LLMProvider == ProviderOllama {
		return c.OllamaEmbeddingModel
	}
	return c.OpenAIEmbeddingModel
}

// CompletionModel returns the completion model for the active provider.
func (c *Config) CompletionModel() string {
	if c.LLMProvider == ProviderOllama {
		return c.OllamaCompletionModel
	}
	return c.OpenAICompletionModel
}
