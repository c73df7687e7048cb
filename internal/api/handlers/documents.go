package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagemill/pagemill/internal/api"
	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/service"
)

type DocumentService interface {
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	DownloadURL(ctx context.Context, id string) (string, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Filename   string `json:"filename"`
	SHA256     string `json:"sha256"`
	Pages      int    `json:"pages"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	Archived   bool   `json:"archived"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		SourcePath: d.SourcePath,
		Filename:   d.Filename,
		SHA256:     d.SHA256,
		Pages:      d.Pages,
		ChunkCount: d.ChunkCount,
		Status:     string(d.Status),
		Archived:   d.StorageKey != "",
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	output, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &DocumentListResponse{
		Items:   make([]*DocumentResponse, 0, len(output.Items)),
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	}
	for _, d := range output.Items {
		resp.Items = append(resp.Items, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	document, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(document))
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadResponse{URL: url})
}
