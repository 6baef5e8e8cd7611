package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	aggregator *Aggregator
	views      *ViewCounter
	logger     *slog.Logger
}

// NewHandler serves aggregated stats and view counts. views may be nil.
func NewHandler(aggregator *Aggregator, views *ViewCounter) *Handler {
	return &Handler{
		aggregator: aggregator,
		views:      views,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

// Views returns view counts for the comma separated ids query parameter.
func (h *Handler) Views(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids is required"})
		return
	}
	counts, err := h.views.Counts(r.Context(), ids...)
	if err != nil {
		h.logger.Error("failed to read view counts", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "view counts unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"views": counts})
}

func (h *Handler) ResetViews(w http.ResponseWriter, r *http.Request) {
	n, err := h.views.Reset(r.Context())
	if err != nil {
		h.logger.Error("failed to reset view counts", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "view counts unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
