package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/ingest"
	"github.com/svetlov/news-admin/internal/models"
	"github.com/svetlov/news-admin/internal/normalize"
	"github.com/svetlov/news-admin/internal/scraper"
	"github.com/svetlov/news-admin/internal/store"
)

const maxBodyBytes = 2 << 20

type server struct {
	log      *slog.Logger
	cfg      *config.API
	repo     store.PostRepository
	pipeline *ingest.Pipeline
	scraper  *scraper.Gateway
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/news-posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.Post("/", s.handleCreatePost)
			r.Get("/stats", s.handleStats)
			r.Get("/search", s.handleSearch)
			r.Get("/tag/{tag}", s.handleListByTag)
			r.Get("/{id}", s.handleGetPost)
			r.Patch("/{id}", s.handleUpdatePost)
			r.Delete("/{id}", s.handleDeletePost)
		})
		r.Route("/scraper", func(r chi.Router) {
			r.Get("/status", s.handleScraperStatus)
			r.Get("/stats", s.handleScraperStats)
			r.Get("/progress", s.handleScraperProgress)
			r.Post("/trigger", s.handleScraperTrigger)
		})
	})

	return r
}

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type listResponse struct {
	Status  string            `json:"status"`
	Results int               `json:"results"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Data    []models.NewsPost `json:"data"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	params := store.ListParams{
		Page:   clampInt(r.URL.Query().Get("page"), 1, 1_000_000),
		Limit:  clampInt(r.URL.Query().Get("limit"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:   strings.TrimSpace(r.URL.Query().Get("sort")),
		Status: statusFilter(r.URL.Query().Get("status")),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}

	result, err := s.repo.List(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeList(w, params, result)
}

func (s *server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	post, err := s.pipeline.Ingest(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse{Status: "success", Data: post})
}

func (s *server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: normalize.ForDisplay(post)})
}

func (s *server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	post, err := s.pipeline.Update(r.Context(), chi.URLParam(r, "id"), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: post})
}

func (s *server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: map[string]any{"stats": stats}})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "q parameter required"})
		return
	}

	params := store.ListParams{
		Page:   1,
		Limit:  clampInt(r.URL.Query().Get("limit"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Status: models.StatusPublished,
		Search: query,
	}
	result, err := s.repo.List(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeList(w, params, result)
}

func (s *server) handleListByTag(w http.ResponseWriter, r *http.Request) {
	params := store.ListParams{
		Page:   clampInt(r.URL.Query().Get("page"), 1, 1_000_000),
		Limit:  clampInt(r.URL.Query().Get("limit"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Status: models.StatusPublished,
		Tag:    chi.URLParam(r, "tag"),
	}
	result, err := s.repo.List(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeList(w, params, result)
}

func (s *server) handleScraperStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: s.scraper.GetStatus(r.Context())})
}

func (s *server) handleScraperStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: s.scraper.GetStats(r.Context())})
}

func (s *server) handleScraperProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: s.scraper.GetProgress(r.Context())})
}

func (s *server) handleScraperTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := s.scraper.Trigger(r.Context(), strings.TrimSpace(r.URL.Query().Get("source")))
	if err != nil {
		s.log.Error("trigger scrape", slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Status: "error", Message: "failed to trigger scraping"})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: result})
}

// decodeBody reads and decodes the request body into ordered JSON values.
func (s *server) decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "unreadable request body"})
		return nil, false
	}
	raw, err := normalize.DecodeValue(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "request body is not valid JSON"})
		return nil, false
	}
	return raw, true
}

func (s *server) writeList(w http.ResponseWriter, params store.ListParams, result store.ListResult) {
	if result.Posts == nil {
		result.Posts = []models.NewsPost{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Status:  "success",
		Results: len(result.Posts),
		Total:   result.Total,
		Page:    params.Page,
		Limit:   params.Limit,
		Data:    result.Posts,
	})
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: err.Error()})
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, normalize.ErrPayloadNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Status: "error", Message: err.Error()})
	default:
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "internal error"})
	}
}

// statusFilter defaults to published; "all" disables the filter.
func statusFilter(raw string) models.Status {
	switch strings.TrimSpace(raw) {
	case "":
		return models.StatusPublished
	case "all":
		return ""
	default:
		return models.ParseStatus(raw)
	}
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already written; an encode failure here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(payload)
}
