package api

import (
	"log"
	"net/http"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/google/uuid"
)

// RouterConfig wires the handler groups and the session gate into a router.
type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	Gate         middleware.SessionVerifier
}

// NewRouter builds the HTTP surface. Only the catalog write and the image
// upload sit behind the session gate; the storefront read path and the auth
// endpoints are open.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireSession := middleware.RequireSession(cfg.Gate)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Catalog
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetProducts(w, r)
		case http.MethodPost:
			requireSession(http.HandlerFunc(cfg.Handlers.UpdateProducts)).ServeHTTP(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Image upload
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			requireSession(http.HandlerFunc(cfg.Handlers.UploadImage)).ServeHTTP(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Auth
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			cfg.AuthHandlers.Login(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			cfg.AuthHandlers.Verify(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	return withRecover(withLogging(withRequestID(withCORS(mux))))
}

// withCORS mirrors the headers the serverless functions set and answers
// preflight requests before they reach a handler.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[API] %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

// withRecover converts a panic into a 500 response instead of letting it
// kill the connection handler.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				log.Printf("[API] Panic serving %s %s: %v", r.Method, r.URL.Path, err)
				respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
