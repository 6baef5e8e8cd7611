package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
)

func (h *Handler) track(r *http.Request, e analytics.Event, start time.Time, err error) {
	e.LatencyMs = time.Since(start).Milliseconds()
	e.Failed = err != nil
	e.RequestID = logger.RequestID(r.Context())
	h.events.Track(e)
}

// Suggest handles GET /api/v1/restaurants/suggest?searchText=&onlyActive=.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	text := r.URL.Query().Get("searchText")
	onlyActive := boolParam(r, "onlyActive")

	res, err := h.engine.Suggest(r.Context(), text, onlyActive)
	event := analytics.Event{Type: analytics.EventSuggest, Query: strings.ToLower(strings.TrimSpace(text)), OnlyActive: onlyActive}
	if res != nil {
		event.Results = len(res.DishNames) + len(res.RestaurantNames)
	}
	h.track(r, event, start, err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/v1/restaurants/search?searchText=&searchBasis=&onlyActive=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	text, basis := q.Get("searchText"), q.Get("searchBasis")
	onlyActive := boolParam(r, "onlyActive")

	res, err := h.engine.Search(r.Context(), text, query.Basis(basis), onlyActive)
	h.track(r, analytics.Event{
		Type:       analytics.EventSearch,
		Query:      strings.ToLower(strings.TrimSpace(text)),
		Basis:      basis,
		OnlyActive: onlyActive,
		Results:    len(res),
	}, start, err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ListRestaurants handles GET /api/v1/restaurants.
func (h *Handler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.ListAll(r.Context(), boolParam(r, "onlyActive"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// Nearby handles GET /api/v1/restaurants/nearby. The point comes from the
// latitude and longitude headers; radiusKm is optional.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	point, err := pointFromHeaders(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var radius float64
	if v := r.URL.Query().Get("radiusKm"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid radiusKm %q", v))
			return
		}
	}

	res, err := h.engine.ByLocation(r.Context(), point, radius)
	h.track(r, analytics.Event{Type: analytics.EventNearby, Query: point.String(), Results: len(res)}, start, err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func pointFromHeaders(r *http.Request) (geo.Point, error) {
	var p geo.Point
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"latitude", &p.Latitude},
		{"longitude", &p.Longitude},
	} {
		v := strings.TrimSpace(r.Header.Get(f.name))
		if v == "" {
			return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%s header is required", f.name)
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid %s %q", f.name, v)
		}
		*f.dst = n
	}
	return p, nil
}

// GetRestaurant handles GET /api/v1/restaurants/{id} and counts the view.
func (h *Handler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.cache.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.views.Record(r.Context(), id)
	h.events.Track(analytics.Event{
		Type:         analytics.EventView,
		RestaurantID: id,
		Results:      1,
		RequestID:    logger.RequestID(r.Context()),
	})
	h.writeJSON(w, http.StatusOK, res)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// ResetCache handles POST /api/v1/cache/reset. With warm=true the cache is
// rebuilt before responding.
func (h *Handler) ResetCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Reset()
	logger.FromContext(r.Context()).Info("cache reset requested", "component", "api-handler")
	if boolParam(r, "warm") {
		if _, err := h.cache.EnsureReady(r.Context()); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}
