package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/internal/engine/paginate"
	"github.com/mkravets/text-search-server/internal/ingest"
	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
	"github.com/mkravets/text-search-server/pkg/logger"
	"github.com/mkravets/text-search-server/pkg/metrics"
	"github.com/mkravets/text-search-server/pkg/middleware"
	"github.com/mkravets/text-search-server/pkg/tracing"
)

// Handler serves the HTTP API over the index. The cache and publisher are
// optional; a nil cache disables memoization and a nil publisher makes the
// index purely in-memory.
type Handler struct {
	idx       *Index
	cache     *QueryCache
	publisher *ingest.Publisher
	metrics   *metrics.Metrics
	pageSize  int
	logger    *slog.Logger
}

// NewHandler creates a Handler. A non-positive pageSize disables pagination
// defaults and returns every result on one page.
func NewHandler(idx *Index, cache *QueryCache, publisher *ingest.Publisher, m *metrics.Metrics, pageSize int) *Handler {
	return &Handler{
		idx:       idx,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		pageSize:  pageSize,
		logger:    slog.Default().With("component", "http-handler"),
	}
}

// Register installs the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search/batch", h.BatchSearch)
	mux.HandleFunc("PUT /api/v1/documents", h.UpsertDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/match", h.MatchDocument)
	mux.HandleFunc("GET /api/v1/match", h.MatchAll)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/maintenance/dedup", h.RemoveDuplicates)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type searchResponse struct {
	Query      string            `json:"query"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Results    []engine.Document `json:"results"`
}

// Search runs a single query. Optional parameters: status (defaults to
// ACTUAL), page (1-based), page_size.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	status := engine.StatusActual
	if name := r.URL.Query().Get("status"); name != "" {
		parsed, err := engine.ParseStatus(name)
		if err != nil {
			h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
			return
		}
		status = parsed
	}
	page, pageSize, err := h.pageParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, span := tracing.StartSpan(ctx, "search", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("query", query)

	var results []engine.Document
	cacheHit := false
	cacheStatus := "none"
	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, status, func() ([]engine.Document, error) {
			_, child := tracing.StartChildSpan(ctx, "engine-search")
			defer child.End()
			return h.idx.Search(query, engine.ByStatus(status))
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		results, err = h.idx.Search(query, engine.ByStatus(status))
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
	}

	resp := searchResponse{Query: query, Total: len(results), Page: page, Results: results}
	if pageSize > 0 {
		pages, pgErr := paginate.Pages(results, pageSize)
		if pgErr != nil {
			h.writeError(w, pkgerrors.HTTPStatusCode(pgErr), pgErr.Error())
			return
		}
		resp.TotalPages = (len(results) + pageSize - 1) / pageSize
		resp.Results = []engine.Document{}
		current := 1
		for p := range pages {
			if current == page {
				resp.Results = p
				break
			}
			current++
		}
	} else {
		resp.TotalPages = 1
	}

	log.Info("search completed",
		"query", query,
		"total", len(results),
		"cache", cacheStatus,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

type batchSearchRequest struct {
	Queries []string `json:"queries"`
}

type batchSearchResponse struct {
	Results [][]engine.Document `json:"results"`
}

// BatchSearch runs several queries concurrently and returns per-query
// results in input order.
func (h *Handler) BatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Queries) == 0 {
		h.writeError(w, http.StatusBadRequest, "queries must not be empty")
		return
	}
	results, err := h.idx.BatchSearch(req.Queries)
	if err != nil {
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, batchSearchResponse{Results: results})
}

// UpsertDocument indexes or replaces a document and persists it.
func (h *Handler) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ValidateDocumentRequest(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := engine.StatusActual
	if req.Status != "" {
		parsed, err := engine.ParseStatus(req.Status)
		if err != nil {
			h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
			return
		}
		status = parsed
	}

	if err := h.idx.Upsert(req.ID, req.Text, status, req.Ratings); err != nil {
		log.Warn("document rejected", "doc_id", req.ID, "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}
	if h.publisher != nil {
		if err := h.publisher.Upsert(ctx, req.ID, req.Text, status, req.Ratings); err != nil {
			log.Error("document indexed but not persisted", "doc_id", req.ID, "error", err)
			h.writeError(w, http.StatusInternalServerError, "document indexed but persistence failed")
			return
		}
	}
	h.invalidateCache(r)

	log.Info("document indexed", "doc_id", req.ID, "status", status.String())
	h.writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "status": status.String()})
}

// GetDocument returns the document's term frequency map.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	freqs := h.idx.WordFrequencies(id)
	if len(freqs) == 0 && !h.indexed(id) {
		h.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "word_frequencies": freqs})
}

// DeleteDocument removes a document from the index and the store.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	h.idx.Remove(id)
	if h.publisher != nil {
		if err := h.publisher.Remove(ctx, id); err != nil {
			logger.FromContext(ctx).Error("document removed but not deleted from store", "doc_id", id, "error", err)
			h.writeError(w, http.StatusInternalServerError, "document removed but store deletion failed")
			return
		}
	}
	h.invalidateCache(r)
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": true})
}

type matchResponse struct {
	ID     int      `json:"id"`
	Status string   `json:"status"`
	Words  []string `json:"words"`
}

// MatchDocument reports which plus terms of the query occur in the document.
func (h *Handler) MatchDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	words, status, err := h.idx.Match(query, id)
	if err != nil {
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, matchResponse{ID: id, Status: status.String(), Words: words})
}

// MatchAll reports the query's plus-term matches for every indexed document,
// in ascending id order.
func (h *Handler) MatchAll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	ids := h.idx.DocumentIDs()
	matches := make([]matchResponse, 0, len(ids))
	for _, id := range ids {
		words, status, err := h.idx.Match(query, id)
		if err != nil {
			h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
			return
		}
		matches = append(matches, matchResponse{ID: id, Status: status.String(), Words: words})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"query": query, "matches": matches})
}

// Stats reports index size, the rolling no-result window, and cache counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"document_count":     h.idx.DocumentCount(),
		"no_result_requests": h.idx.NoResultRequests(),
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		stats["cache"] = map[string]int64{"hits": hits, "misses": misses}
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// RemoveDuplicates drops duplicate documents and returns the removed ids.
func (h *Handler) RemoveDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	removed := h.idx.RemoveDuplicates()
	if h.publisher != nil {
		for _, id := range removed {
			if err := h.publisher.Remove(ctx, id); err != nil {
				logger.FromContext(ctx).Error("duplicate removed but not deleted from store", "doc_id", id, "error", err)
			}
		}
	}
	h.invalidateCache(r)
	if removed == nil {
		removed = []int{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// CacheInvalidate drops every cached search result.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) pageParams(r *http.Request) (page, pageSize int, err error) {
	page = 1
	if v := r.URL.Query().Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
	}
	pageSize = h.pageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize < 1 {
			return 0, 0, errors.New("page_size must be a positive integer")
		}
	}
	return page, pageSize, nil
}

func (h *Handler) indexed(id int) bool {
	for _, known := range h.idx.DocumentIDs() {
		if known == id {
			return true
		}
	}
	return false
}

func (h *Handler) invalidateCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation after mutation failed", "error", err)
	}
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
