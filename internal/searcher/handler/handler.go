// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taiga-forestry/multithreaded-search/internal/indexer"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/cache"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/query"
	apperrors "github.com/taiga-forestry/multithreaded-search/pkg/errors"
	"github.com/taiga-forestry/multithreaded-search/pkg/logger"
)

// Service is the query side used by the handler. *searcher.Service
// satisfies it.
type Service interface {
	Search(ctx context.Context, req searcher.Request) (*query.Response, error)
	Document(title string) (*searcher.DocumentInfo, error)
	Stats() (indexer.Stats, error)
	Cache() *cache.QueryCache
}

type Handler struct {
	service     Service
	usePageRank bool
	logger      *slog.Logger
}

// New returns a Handler. usePageRank is the scoring mode when the request
// does not set one.
func New(service Service, usePageRank bool) *Handler {
	return &Handler{
		service:     service,
		usePageRank: usePageRank,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{title}", h.Document)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
}

// Search handles GET /api/v1/search?q=...&limit=...&pagerank=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	usePageRank := h.usePageRank
	if prStr := r.URL.Query().Get("pagerank"); prStr != "" {
		parsed, err := strconv.ParseBool(prStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "pagerank must be true or false")
			return
		}
		usePageRank = parsed
	}

	resp, err := h.service.Search(ctx, searcher.Request{
		Query:       q,
		Limit:       limit,
		UsePageRank: usePageRank,
		Surface:     "http",
	})
	if err != nil {
		logger.FromContext(ctx).Error("search failed", "query", q, "error", err)
		h.writeAppError(w, err)
		return
	}
	if resp.Results == nil {
		resp.Results = []query.Result{}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Document handles GET /api/v1/documents/{title}.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Document(r.PathValue("title"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// IndexStats handles GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.service.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeError(w, status, message)
}
