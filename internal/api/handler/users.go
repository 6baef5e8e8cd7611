package handler

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
)

// CreateUser handles POST /user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in user.CreateInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, u)
}

// GetUser handles GET /user/{uid}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByUID(r.Context(), r.PathValue("uid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

type isNewUserResponse struct {
	*user.User
	IsNewUser bool `json:"isNewUser"`
}

type isNewUserRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// IsNewUser handles POST /user/isnewuser. Existing accounts are returned
// alongside the flag.
func (h *Handler) IsNewUser(w http.ResponseWriter, r *http.Request) {
	var req isNewUserRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, isNew, err := h.users.IsNewUser(r.Context(), req.PhoneNumber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, isNewUserResponse{User: u, IsNewUser: isNew})
}
