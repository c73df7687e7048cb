package admin

import (
	"fmt"
	"log"

	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/llm"
	"github.com/pagemill/pagemill/internal/llm/ollama"
	"github.com/pagemill/pagemill/internal/llm/openai"
	openaisdk "github.com/sashabaranov/go-openai"
)

// newLLMClient builds the provider selected by the configuration and wraps it
// with circuit breaking and rate limiting.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	var inner llm.Client

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		inner = ollama.NewClient(ollama.Config{
			BaseURL:             cfg.OllamaBaseURL,
			EmbeddingModel:      cfg.OllamaEmbeddingModel,
			CompletionModel:     cfg.OllamaCompletionModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		log.Printf("using ollama provider at %s (embed=%s complete=%s)",
			cfg.OllamaBaseURL, cfg.OllamaEmbeddingModel, cfg.OllamaCompletionModel)
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("PAGEMILL_OPENAI_API_KEY is required for the openai provider")
		}
		inner = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openaisdk.EmbeddingModel(cfg.OpenAIEmbeddingModel),
			CompletionModel:     cfg.OpenAICompletionModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		log.Printf("using openai provider (embed=%s complete=%s)",
			cfg.OpenAIEmbeddingModel, cfg.OpenAICompletionModel)
	}

	return llm.NewResilientClient(inner, llm.DefaultResilientConfig(cfg.LLMProvider)), nil
}
