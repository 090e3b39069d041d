package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/booklytics/bookscraper/internal/database"
	"github.com/booklytics/bookscraper/internal/export"
	"github.com/booklytics/bookscraper/internal/scraper"
)

type Handlers struct {
	scraper      *scraper.Service
	repo         *database.Repository
	defaultPages int
	logger       *slog.Logger

	mu     sync.RWMutex
	latest *scraper.RunOutput
}

func NewHandlers(scraper *scraper.Service, repo *database.Repository, defaultPages int, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper:      scraper,
		repo:         repo,
		defaultPages: defaultPages,
		logger:       logger,
	}
}

// Routes mounts all catalog endpoints on the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/crawl", h.Crawl)
	r.Get("/books", h.GetBooks)
	r.Get("/stats", h.GetStats)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}/books", h.GetRunBooks)
}

// CrawlRequest represents a crawl trigger request
type CrawlRequest struct {
	Pages int `json:"pages"`
}

// CrawlResponse summarizes a finished crawl run
type CrawlResponse struct {
	RunID          string  `json:"run_id"`
	Pages          int     `json:"pages"`
	BookCount      int     `json:"book_count"`
	DetailFailures int     `json:"detail_failures"`
	Interrupted    bool    `json:"interrupted"`
	FromCache      bool    `json:"from_cache"`
	AveragePrice   float64 `json:"average_price"`
}

// Crawl handles crawl trigger requests
func (h *Handlers) Crawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.Pages <= 0 {
		req.Pages = h.defaultPages
	}

	out, err := h.scraper.Run(r.Context(), req.Pages)
	if err != nil {
		h.logger.Error("crawl failed", "error", err, "pages", req.Pages)
		h.respondError(w, http.StatusBadGateway, "crawl failed: "+err.Error())
		return
	}

	h.mu.Lock()
	h.latest = out
	h.mu.Unlock()

	h.respondJSON(w, http.StatusOK, CrawlResponse{
		RunID:          out.Result.RunID,
		Pages:          out.Result.Pages,
		BookCount:      len(out.Books),
		DetailFailures: out.Result.DetailFailures,
		Interrupted:    out.Result.Interrupted,
		FromCache:      out.FromCache,
		AveragePrice:   out.Summary.AveragePrice,
	})
}

// GetBooks returns the normalized collection of the most recent run
func (h *Handlers) GetBooks(w http.ResponseWriter, r *http.Request) {
	out, ok := h.latestOutput()
	if !ok {
		h.respondError(w, http.StatusNotFound, "no crawl run yet")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": out.Result.RunID,
		"books":  out.Books,
		"report": out.Report,
	})
}

// GetStats returns the aggregate statistics of the most recent run
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	out, ok := h.latestOutput()
	if !ok {
		h.respondError(w, http.StatusNotFound, "no crawl run yet")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  out.Result.RunID,
		"summary": out.Summary,
	})
}

// ExportCSV streams the most recent collection as CSV
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	out, ok := h.latestOutput()
	if !ok {
		h.respondError(w, http.StatusNotFound, "no crawl run yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="books.csv"`)
	if err := export.WriteCSV(w, out.Books); err != nil {
		h.logger.Error("csv export failed", "error", err)
	}
}

// ListRuns returns persisted run records, newest first
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.respondError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}

	limit := uint64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, runs)
}

// GetRunBooks returns the stored books of a persisted run, with
// optional min_price, max_price and rating filters.
func (h *Handlers) GetRunBooks(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.respondError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}

	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	filter, err := parseBookFilter(r.URL.Query())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	books, err := h.repo.ListBooks(r.Context(), runID, filter)
	if err != nil {
		h.logger.Error("failed to list books", "error", err, "run_id", runID)
		h.respondError(w, http.StatusInternalServerError, "failed to list books")
		return
	}

	h.respondJSON(w, http.StatusOK, books)
}

func (h *Handlers) latestOutput() (*scraper.RunOutput, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.latest != nil
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
