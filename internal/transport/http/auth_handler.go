package http

import (
	"net/http"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// POST /api/auth/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// GET /api/auth/me
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
