package handler

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/partner"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
)

// The partner routes run behind middleware.Auth, so the user is always set.

// ListEdits handles GET /partner/restaurant.
func (h *Handler) ListEdits(w http.ResponseWriter, r *http.Request) {
	edits, err := h.partners.ListForOwner(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, edits)
}

// CreateRestaurant handles POST /partner/restaurant.
func (h *Handler) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var in restaurant.Restaurant
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.partners.Create(r.Context(), middleware.UserFromContext(r.Context()), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

// GetEdit handles GET /partner/restaurant/{id}.
func (h *Handler) GetEdit(w http.ResponseWriter, r *http.Request) {
	e, err := h.partners.Get(r.Context(), middleware.UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

// UpdateDetails handles POST /partner/restaurant/{id}.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var in restaurant.Restaurant
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.partners.UpdateDetails(r.Context(), middleware.UserFromContext(r.Context()), r.PathValue("id"), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

// DeleteEdit handles DELETE /partner/restaurant/{id} and returns
// the owner's remaining edits.
func (h *Handler) DeleteEdit(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.partners.Delete(r.Context(), middleware.UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, remaining)
}

type menuRequest struct {
	Menu []restaurant.Dish `json:"menu"`
}

// UpdateMenu handles POST /partner/restaurant/{id}/menu.
func (h *Handler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.partners.UpdateMenu(r.Context(), middleware.UserFromContext(r.Context()), r.PathValue("id"), req.Menu)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

// SetState handles POST /partner/restaurant/{id}/state.
func (h *Handler) SetState(w http.ResponseWriter, r *http.Request) {
	var change partner.StateChange
	if err := decode(w, r, &change); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.partners.SetState(r.Context(), middleware.UserFromContext(r.Context()), r.PathValue("id"), change)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}
