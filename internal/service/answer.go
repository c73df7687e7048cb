package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/llm"
	"github.com/pagemill/pagemill/internal/telemetry"
)

// ChunkSearcherInterface defines the similarity search interface
type ChunkSearcherInterface interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*domain.ScoredChunk, error)
}

// QueryLogRepositoryInterface defines the repository interface for query log persistence
type QueryLogRepositoryInterface interface {
	Create(ctx context.Context, entry *domain.QueryLog) error
}

const (
	// DefaultTopK is the number of chunks retrieved per query.
	DefaultTopK = 4

	numVariants       = 3
	completionMaxTok  = 1024
	completionTemp    = 0.0
	fallbackAnswerMsg = "I don't have enough information to answer this question."
)

const answerSystemPrompt = `You are a helpful assistant that answers questions using only the provided context.`

const answerPromptTemplate = `Use the following pieces of context to answer the question at the end.
If the context does not contain the answer, say exactly: "%s"

Context:
%s

Question: %s

Answer:`

const variantPromptTemplate = `You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database. Provide these alternative questions, one per line.

Original question: %s`

// Leading enumeration like "1. ", "2) " or "3: " on generated variants.
var variantPrefixRe = regexp.MustCompile(`^\d+[\.\)\:-]\s*`)

// AnswerService answers questions over the ingested corpus.
type AnswerService struct {
	searcher  ChunkSearcherInterface
	queryLogs QueryLogRepositoryInterface
	client    llm.Client
	uuidGen   UUIDGenerator

	provider string
	model    string
	topK     int
}

// AnswerOption customizes an AnswerService.
type AnswerOption func(*AnswerService)

// WithTopK overrides the default number of retrieved chunks.
func WithTopK(k int) AnswerOption {
	return func(s *AnswerService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithQueryLog enables persistence of answered questions.
func WithQueryLog(repo QueryLogRepositoryInterface) AnswerOption {
	return func(s *AnswerService) { s.queryLogs = repo }
}

// WithAnswerUUIDGenerator overrides UUID generation (for testing).
func WithAnswerUUIDGenerator(gen UUIDGenerator) AnswerOption {
	return func(s *AnswerService) { s.uuidGen = gen }
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(searcher ChunkSearcherInterface, client llm.Client, provider, model string, opts ...AnswerOption) *AnswerService {
	s := &AnswerService{
		searcher: searcher,
		client:   client,
		uuidGen:  &DefaultUUIDGenerator{},
		provider: provider,
		model:    model,
		topK:     DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source identifies a chunk that contributed to an answer.
type Source struct {
	ChunkID    string
	DocumentID string
	SourcePath string
	Page       int
	Score      float64
	Content    string
}

type AnswerInput struct {
	Query          string
	TopK           int
	IncludeSources bool
}

type AnswerOutput struct {
	Answer  string
	Sources []Source
}

// Answer retrieves the chunks most relevant to the question and asks the
// completion model to answer from them.
func (s *AnswerService) Answer(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		Provider:  s.provider,
		Operation: "answer",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.topK
	}

	started := time.Now()

	scored, err := s.retrieve(ctx, query, topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer, err := s.complete(ctx, query, scored)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	output := &AnswerOutput{Answer: answer}
	if input.IncludeSources {
		for _, sc := range scored {
			output.Sources = append(output.Sources, Source{
				ChunkID:    sc.Chunk.ID,
				DocumentID: sc.Chunk.DocumentID,
				SourcePath: sc.Chunk.SourcePath,
				Page:       sc.Chunk.Page,
				Score:      sc.Score,
				Content:    sc.Chunk.Content,
			})
		}
	}

	s.logQuery(ctx, query, topK, scored, answer, time.Since(started))

	return output, nil
}

// retrieve runs multi-query retrieval: the original question plus generated
// rephrasings, merged by best score per chunk.
func (s *AnswerService) retrieve(ctx context.Context, query string, topK int) ([]*domain.ScoredChunk, error) {
	queries := append([]string{query}, s.generateVariants(ctx, query)...)

	best := make(map[string]*domain.ScoredChunk)
	searched := false

	for _, q := range queries {
		embedding, err := s.client.GenerateEmbedding(ctx, q)
		if err != nil {
			// The original question must succeed, variants are best effort.
			if q == query && !searched {
				return nil, err
			}
			log.Printf("answer: embedding variant failed: %v", err)
			continue
		}

		results, err := s.searcher.SearchByEmbedding(ctx, embedding, topK)
		if err != nil {
			if q == query && !searched {
				return nil, err
			}
			log.Printf("answer: variant search failed: %v", err)
			continue
		}
		searched = true

		for _, sc := range results {
			if existing, ok := best[sc.Chunk.ID]; !ok || sc.Score > existing.Score {
				best[sc.Chunk.ID] = sc
			}
		}
	}

	merged := make([]*domain.ScoredChunk, 0, len(best))
	for _, sc := range best {
		merged = append(merged, sc)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Chunk.ID < merged[j].Chunk.ID
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// generateVariants asks the completion model for rephrasings of the question.
// Failures degrade to retrieval with the original question only.
func (s *AnswerService) generateVariants(ctx context.Context, query string) []string {
	raw, err := s.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      fmt.Sprintf(variantPromptTemplate, numVariants, query),
		Temperature: completionTemp,
		MaxTokens:   completionMaxTok,
	})
	if err != nil {
		log.Printf("answer: generating query variants failed: %v", err)
		return nil
	}

	var variants []string
	for _, line := range strings.Split(raw, "\n") {
		variant := strings.TrimSpace(variantPrefixRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if variant == "" || strings.EqualFold(variant, query) {
			continue
		}
		variants = append(variants, variant)
		if len(variants) == numVariants {
			break
		}
	}
	return variants
}

func (s *AnswerService) complete(ctx context.Context, query string, scored []*domain.ScoredChunk) (string, error) {
	if len(scored) == 0 {
		return fallbackAnswerMsg, nil
	}

	var contextParts []string
	for _, sc := range scored {
		contextParts = append(contextParts, sc.Chunk.Content)
	}

	prompt := fmt.Sprintf(answerPromptTemplate, fallbackAnswerMsg, strings.Join(contextParts, "\n\n"), query)

	answer, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      answerSystemPrompt,
		Prompt:      prompt,
		Temperature: completionTemp,
		MaxTokens:   completionMaxTok,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (s *AnswerService) logQuery(ctx context.Context, query string, topK int, scored []*domain.ScoredChunk, answer string, took time.Duration) {
	if s.queryLogs == nil {
		return
	}

	chunkIDs := make([]string, 0, len(scored))
	for _, sc := range scored {
		chunkIDs = append(chunkIDs, sc.Chunk.ID)
	}

	entry := &domain.QueryLog{
		ID:         s.uuidGen.NewString(),
		Query:      query,
		Provider:   s.provider,
		Model:      s.model,
		TopK:       topK,
		ChunkIDs:   chunkIDs,
		Answer:     answer,
		DurationMs: took.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.queryLogs.Create(ctx, entry); err != nil {
		log.Printf("answer: logging query failed: %v", err)
	}
}
