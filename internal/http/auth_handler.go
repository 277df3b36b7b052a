package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/auth"
	"github.com/fjod/go_pos/internal/domain"
)

type AuthHandler struct {
	sessions *auth.Manager
}

func NewAuthHandler(sessions *auth.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type LoginRequestDTO struct {
	Email string `json:"email"`
}

type SessionResponse struct {
	Token    string      `json:"token"`
	User     domain.User `json:"user"`
	SaleDate time.Time   `json:"sale_date"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "invalid_email", "email is required")
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{
		Token:    session.Token,
		User:     session.User,
		SaleDate: session.SaleDate,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	if err := h.sessions.Logout(session.Token); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the current session so a reconnecting terminal can restore
// its user and sale date without logging in again.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{
		Token:    session.Token,
		User:     session.User,
		SaleDate: session.SaleDate,
	})
}
