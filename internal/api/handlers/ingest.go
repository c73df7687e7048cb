package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pagemill/pagemill/internal/api"
	"github.com/pagemill/pagemill/internal/service"
)

type IngestService interface {
	IngestFile(ctx context.Context, path string) (*service.IngestResult, error)
	IngestDirectory(ctx context.Context, dir string) (*service.DirectoryResult, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestRequest struct {
	FilePath string `json:"file_path"`
}

type IngestResponse struct {
	DocumentID        string `json:"document_id"`
	SourcePath        string `json:"source_path"`
	Filename          string `json:"filename"`
	Status            string `json:"status"`
	Pages             int    `json:"pages"`
	ChunkCount        int    `json:"chunk_count"`
	PendingEmbeddings int    `json:"pending_embeddings,omitempty"`
	Reused            bool   `json:"reused,omitempty"`
}

type DirectoryIngestResponse struct {
	Ingested []*IngestResponse `json:"ingested"`
	Failed   map[string]string `json:"failed,omitempty"`
}

func ingestToResponse(result *service.IngestResult) *IngestResponse {
	return &IngestResponse{
		DocumentID:        result.Document.ID,
		SourcePath:        result.Document.SourcePath,
		Filename:          result.Document.Filename,
		Status:            string(result.Document.Status),
		Pages:             result.Pages,
		ChunkCount:        result.ChunkCount,
		PendingEmbeddings: result.PendingEmbeddings,
		Reused:            result.Reused,
	}
}

func (h *IngestHandler) IngestFile(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FilePath == "" {
		api.Error(w, http.StatusBadRequest, "file_path is required")
		return
	}

	result, err := h.svc.IngestFile(r.Context(), req.FilePath)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	api.Success(w, status, ingestToResponse(result))
}

func (h *IngestHandler) IngestDirectory(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("directory_path")
	if dir == "" {
		api.Error(w, http.StatusBadRequest, "directory_path is required")
		return
	}

	result, err := h.svc.IngestDirectory(r.Context(), dir)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &DirectoryIngestResponse{Failed: result.Failed}
	for _, fileResult := range result.Ingested {
		resp.Ingested = append(resp.Ingested, ingestToResponse(fileResult))
	}

	api.Success(w, http.StatusOK, resp)
}
