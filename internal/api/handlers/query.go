package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pagemill/pagemill/internal/api"
	"github.com/pagemill/pagemill/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, input service.AnswerInput) (*service.AnswerOutput, error)
}

type QueryHandler struct {
	svc AnswerService
}

func NewQueryHandler(svc AnswerService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	IncludeSources bool   `json:"include_sources,omitempty"`
}

type SourceResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	SourcePath string  `json:"source_path"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

type QueryResponse struct {
	Answer  string           `json:"answer"`
	Sources []SourceResponse `json:"sources,omitempty"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	output, err := h.svc.Answer(r.Context(), service.AnswerInput{
		Query:          req.Query,
		TopK:           req.TopK,
		IncludeSources: req.IncludeSources,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &QueryResponse{Answer: output.Answer}
	for _, source := range output.Sources {
		resp.Sources = append(resp.Sources, SourceResponse{
			ChunkID:    source.ChunkID,
			DocumentID: source.DocumentID,
			SourcePath: source.SourcePath,
			Page:       source.Page,
			Score:      source.Score,
			Content:    source.Content,
		})
	}

	api.Success(w, http.StatusOK, resp)
}
