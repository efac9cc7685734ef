package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// SessionVerifier validates an admin session token, sliding its expiry on
// success.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// ExtractToken extracts the session token from a cookie or the
// Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie("admin_token"); err == nil {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// RequireSession gates a handler behind a valid admin session. Missing,
// unknown and expired tokens all get the same generic response.
func RequireSession(gate SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				respondError(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}

			authenticated, err := gate.Verify(r.Context(), token)
			if err != nil {
				respondError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !authenticated {
				respondError(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
