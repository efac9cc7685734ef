package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/storefront/internal/session"
)

// AuthHandlers serves admin login and session verification.
type AuthHandlers struct {
	gate *session.Gate
}

func NewAuthHandlers(gate *session.Gate) *AuthHandlers {
	return &AuthHandlers{gate: gate}
}

// LoginRequest carries the admin password.
type LoginRequest struct {
	Password string `json:"password"`
}

// VerifyRequest carries a previously issued session token.
type VerifyRequest struct {
	Token string `json:"token"`
}

// Login checks the admin password and returns a fresh session token.
// Wrong-password responses are deliberately generic.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.gate.Login(r.Context(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrPasswordRequired):
			respondError(w, http.StatusBadRequest, "Password is required")
		case errors.Is(err, session.ErrInvalidCredentials):
			log.Printf("[Auth] Failed admin login attempt from %s", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, session.ErrNotConfigured):
			log.Printf("[Auth] Login rejected: %v", err)
			respondError(w, http.StatusInternalServerError, "Server configuration error")
		default:
			log.Printf("[Auth] Login failed: %v", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

// Verify reports whether a token is a live session, sliding its expiry on
// success. Missing and expired tokens get the same generic response.
func (h *AuthHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	authenticated, err := h.gate.Verify(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, session.ErrTokenRequired) {
			respondError(w, http.StatusBadRequest, "Token is required")
			return
		}
		log.Printf("[Auth] Session lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !authenticated {
		respondError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"authenticated": true,
	})
}
