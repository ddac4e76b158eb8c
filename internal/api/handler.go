// Package api exposes the neighborhood over HTTP for inspection and for
// driving the director lifecycle.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/neighborhood-life/internal/director"
	"github.com/nidhogg/neighborhood-life/internal/news"
	"github.com/nidhogg/neighborhood-life/internal/world"
	"go.uber.org/zap"
)

// NewsArchive serves persisted events once the in-memory tail has nothing,
// typically after a restart. Optional; nil means in-memory only.
type NewsArchive interface {
	Recent(ctx context.Context, n int) ([]*news.Event, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	clock    *world.Clock
	weather  *world.Weather
	roster   *world.Roster
	director *director.Director
	center   *news.Center
	archive  NewsArchive
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(clock *world.Clock, weather *world.Weather, roster *world.Roster, d *director.Director, center *news.Center, archive NewsArchive, logger *zap.Logger) *Handler {
	return &Handler{
		clock:    clock,
		weather:  weather,
		roster:   roster,
		director: d,
		center:   center,
		archive:  archive,
		logger:   logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/world/status", h.worldStatus)
		r.Get("/residents", h.listResidents)
		r.Get("/residents/{id}/schedule", h.getSchedule)
		r.Post("/director/activate", h.activate)
		r.Post("/director/deactivate", h.deactivate)
		r.Get("/news/recent", h.recentNews)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "world": "neighborhood"})
}

func (h *Handler) worldStatus(w http.ResponseWriter, r *http.Request) {
	wt := h.clock.WorldTime()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"world_time":     wt.Format(time.RFC3339),
		"minute_of_day":  h.clock.MinuteOfDay(),
		"weekend":        h.clock.IsWeekend(),
		"weather":        h.weather.CurrentWeather(),
		"director_state": h.director.State(),
		"armed_alarms":   h.director.ArmedAlarms(),
		"resident_count": len(h.roster.All()),
	})
}

func (h *Handler) listResidents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.roster.All())
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, ok := h.director.Schedule(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no schedule for resident"})
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.director.Activate()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":        h.director.State(),
		"participants": len(h.director.Schedules()),
		"armed_alarms": h.director.ArmedAlarms(),
	})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.director.Deactivate()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": h.director.State(),
	})
}

func (h *Handler) recentNews(w http.ResponseWriter, r *http.Request) {
	n := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	events := h.center.Recent(n)
	if len(events) == 0 && h.archive != nil {
		stored, err := h.archive.Recent(r.Context(), n)
		if err != nil {
			h.logger.Warn("news archive query failed", zap.Error(err))
		} else {
			events = stored
		}
	}
	if events == nil {
		events = []*news.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
