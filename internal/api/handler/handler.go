// Package handler implements the directory's HTTP endpoints: restaurant
// search and lookup, cache administration, user accounts and the partner
// workflow.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/partner"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/query"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Deps are the services behind the API. Views and Events may be nil.
type Deps struct {
	Engine   *query.Engine
	Cache    *cache.Cache
	Users    *user.Service
	Partners *partner.Service
	Views    *analytics.ViewCounter
	Events   *analytics.Collector
}

type Handler struct {
	engine   *query.Engine
	cache    *cache.Cache
	users    *user.Service
	partners *partner.Service
	views    *analytics.ViewCounter
	events   *analytics.Collector
	logger   *slog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		engine:   d.Engine,
		cache:    d.Cache,
		users:    d.Users,
		partners: d.Partners,
		views:    d.Views,
		events:   d.Events,
		logger:   slog.Default().With("component", "api-handler"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps err to its status code. Server-side failures are logged
// with the request ID and reported without internal detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := apperrors.Message(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"component", "api-handler",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			message = http.StatusText(status)
		}
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "request body is required")
		}
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

// boolParam parses an optional boolean query parameter; anything other
// than a valid boolean reads as false.
func boolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
