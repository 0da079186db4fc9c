// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"repo-atlas/internal/identity"
	"repo-atlas/internal/model"
	"repo-atlas/internal/report"
	"repo-atlas/internal/service"
)

const defaultRequestTimeout = 60 * time.Second

// Service is the subset of *service.Service the API depends on.
type Service interface {
	ScanRepos(ctx context.Context, userKey string, opts service.ScanOptions) (*model.ScanResult, error)
	AnalyzeRepo(ctx context.Context, userKey, owner, repo string, opts service.AnalyzeOptions) (*model.RepoAnalysis, error)
	LatestScanTime(ctx context.Context, userKey string) (time.Time, bool, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(svc Service, logger *slog.Logger, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := &Handler{
		svc:    svc,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Use(identity.Middleware)
		r.Post("/scan", h.postScan)
		r.Get("/scan", h.getScan)
		r.Get("/scan/latest", h.getLatestScan)
		r.Post("/analyze", h.postAnalyze)
		r.Get("/summary", h.getSummary)
		r.Get("/repos", h.getRepos)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanRequest struct {
	Org   string `json:"org"`
	Force bool   `json:"force"`
}

// postScan runs or serves a cached scan.
// POST /v1/scan {"org": "...", "force": true}
func (h *Handler) postScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.scan(w, r, service.ScanOptions{Org: req.Org, Force: req.Force})
}

// getScan is postScan with query parameters.
// GET /v1/scan?org=...&force=true
func (h *Handler) getScan(w http.ResponseWriter, r *http.Request) {
	opts, ok := scanOptionsFromQuery(w, r)
	if !ok {
		return
	}
	h.scan(w, r, opts)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request, opts service.ScanOptions) {
	result, err := h.svc.ScanRepos(r.Context(), identity.UserFrom(r.Context()), opts)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type latestScanResponse struct {
	ScannedAt time.Time `json:"scannedAt"`
}

// getLatestScan reports when the user last scanned, without scanning.
// GET /v1/scan/latest
func (h *Handler) getLatestScan(w http.ResponseWriter, r *http.Request) {
	scannedAt, ok, err := h.svc.LatestScanTime(r.Context(), identity.UserFrom(r.Context()))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	if !ok {
		respondWithError(w, http.StatusNotFound, "No scan recorded")
		return
	}
	respondWithJSON(w, http.StatusOK, latestScanResponse{ScannedAt: scannedAt})
}

type analyzeRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	FullName string `json:"fullName"`
	Force    bool   `json:"force"`
}

// postAnalyze runs or serves a cached repository analysis.
// POST /v1/analyze {"owner": "...", "repo": "..."} or {"fullName": "owner/repo"}
func (h *Handler) postAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Owner == "" && req.Repo == "" && req.FullName != "" {
		owner, name, err := service.ParseFullName(req.FullName)
		if err != nil {
			h.respondWithServiceError(w, r, err)
			return
		}
		req.Owner, req.Repo = owner, name
	}
	if req.Owner == "" || req.Repo == "" {
		respondWithError(w, http.StatusBadRequest, "Missing owner or repo")
		return
	}

	analysis, err := h.svc.AnalyzeRepo(r.Context(), identity.UserFrom(r.Context()), req.Owner, req.Repo, service.AnalyzeOptions{Force: req.Force})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, analysis)
}

// getSummary aggregates the (cached or live) scan for the dashboard.
// GET /v1/summary?org=...&force=true
func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	opts, ok := scanOptionsFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ScanRepos(r.Context(), identity.UserFrom(r.Context()), opts)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report.Summarize(result))
}

// getRepos lists scanned repositories with search, filters and sorting.
// GET /v1/repos?q=&activity=&private=&sort=healthScore&dir=desc&format=json|csv
func (h *Handler) getRepos(w http.ResponseWriter, r *http.Request) {
	opts, ok := scanOptionsFromQuery(w, r)
	if !ok {
		return
	}
	query, err := listQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "csv" {
		respondWithError(w, http.StatusBadRequest, "Invalid 'format' parameter: must be json or csv")
		return
	}

	result, err := h.svc.ScanRepos(r.Context(), identity.UserFrom(r.Context()), opts)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	repos := report.List(result.Repos, query)

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="repositories.csv"`)
		if err := report.WriteCSV(w, repos); err != nil {
			h.logger.Error("Failed to write CSV", "error", err)
		}
		return
	}
	respondWithJSON(w, http.StatusOK, repos)
}

func scanOptionsFromQuery(w http.ResponseWriter, r *http.Request) (service.ScanOptions, bool) {
	q := r.URL.Query()
	opts := service.ScanOptions{Org: q.Get("org")}
	if raw := q.Get("force"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'force' parameter: must be a boolean")
			return opts, false
		}
		opts.Force = force
	}
	return opts, true
}

func listQuery(r *http.Request) (report.Query, error) {
	q := r.URL.Query()
	query := report.Query{Search: q.Get("q")}

	if raw := q.Get("activity"); raw != "" {
		level := model.ActivityLevel(raw)
		if !slices.Contains(model.ActivityLevels, level) {
			return query, errors.New("invalid 'activity' parameter: must be active, moderate, stale or dormant")
		}
		query.Activity = level
	}

	if raw := q.Get("private"); raw != "" {
		private, err := strconv.ParseBool(raw)
		if err != nil {
			return query, errors.New("invalid 'private' parameter: must be a boolean")
		}
		query.Private = &private
	}

	sortBy, err := report.ParseSortField(q.Get("sort"))
	if err != nil {
		return query, errors.New("invalid 'sort' parameter: must be name, healthScore, starCount, pushedAt or size")
	}
	query.SortBy = sortBy

	// Lists open healthiest first; any column starts descending.
	switch q.Get("dir") {
	case "asc":
	case "", "desc":
		query.Descending = true
	default:
		return query, errors.New("invalid 'dir' parameter: must be asc or desc")
	}
	return query, nil
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
