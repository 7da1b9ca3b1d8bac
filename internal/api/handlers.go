package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/apperr"
	"github.com/starford/servemd/internal/bots"
	"github.com/starford/servemd/internal/pipeline"
	"github.com/starford/servemd/internal/settings"
)

// Previewer renders Markdown documents without serving them and reports
// which items are eligible.
type Previewer interface {
	Markdown(ctx context.Context, id int64) (string, error)
	Catalog() []pipeline.ItemStatus
}

// Handler holds API route handlers.
type Handler struct {
	log      accesslog.Log
	preview  Previewer
	settings *settings.Store
}

// NewHandler creates a new Handler.
func NewHandler(log accesslog.Log, preview Previewer, st *settings.Store) *Handler {
	return &Handler{log: log, preview: preview, settings: st}
}

// ListLog handles GET /api/log.
//
//	@Summary		List access log entries, newest first
//	@Tags			log
//	@Produce		json
//	@Param			page		query		int		false	"Page number (1-based)"
//	@Param			per_page	query		int		false	"Page size"
//	@Param			bot			query		string	false	"Filter by bot name"
//	@Success		200			{object}	LogListResponse
//	@Security		BearerAuth
//	@Router			/log [get]
func (h *Handler) ListLog(w http.ResponseWriter, r *http.Request) {
	page, err := h.log.Query(r.Context(), queryInt(r, "per_page"), queryInt(r, "page"), r.URL.Query().Get("bot"))
	if err != nil {
		slog.Error("list log failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// LogStats handles GET /api/log/stats.
//
//	@Summary		Access log totals and per-bot counts
//	@Tags			log
//	@Produce		json
//	@Success		200	{object}	LogStatsResponse
//	@Security		BearerAuth
//	@Router			/log/stats [get]
func (h *Handler) LogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.log.Stats(r.Context())
	if err != nil {
		slog.Error("log stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ClearLog handles DELETE /api/log.
//
//	@Summary		Delete every access log entry
//	@Tags			log
//	@Success		204	"Log cleared"
//	@Security		BearerAuth
//	@Router			/log [delete]
func (h *Handler) ClearLog(w http.ResponseWriter, r *http.Request) {
	if err := h.log.Clear(r.Context()); err != nil {
		slog.Error("clear log failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListItems handles GET /api/items.
//
//	@Summary		List items with their Markdown eligibility
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	ItemListResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ItemListResponse{Items: h.preview.Catalog()})
}

// ItemMarkdown handles GET /api/items/{id}/markdown.
//
//	@Summary		Preview the Markdown document of an item
//	@Tags			items
//	@Produce		text/markdown
//	@Param			id	path		int	true	"Item ID"
//	@Success		200	{string}	string
//	@Failure		400	{object}	errResponse
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/markdown [get]
func (h *Handler) ItemMarkdown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid item id"))
		return
	}
	doc, err := h.preview.Markdown(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrNotEligible):
			writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
		default:
			slog.Error("preview markdown failed", slog.Int64("item_id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Bots handles GET /api/bots.
//
//	@Summary		Crawler signature table in match order
//	@Tags			bots
//	@Produce		json
//	@Success		200	{object}	BotsResponse
//	@Security		BearerAuth
//	@Router			/bots [get]
func (h *Handler) Bots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BotsResponse{Bots: bots.Signatures()})
}

// Settings handles GET /api/settings.
//
//	@Summary		Current serving settings snapshot
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) Settings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Load())
}
