package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/anshulj/wa-checker/api"
	"github.com/anshulj/wa-checker/utils"
)

// Server represents the HTTP server
type Server struct {
	handler *api.Handler
}

// NewServer creates a new HTTP server around the API handler.
func NewServer(handler *api.Handler) *Server {
	return &Server{handler: handler}
}

// Start registers routes and listens on addr. Blocks until the listener
// fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handler.HandleHealth)
	mux.HandleFunc("/status", s.handler.HandleStatus)
	mux.HandleFunc("/qr", s.handler.HandleQR)
	mux.HandleFunc("/check", s.handler.HandleCheck)
	mux.HandleFunc("/send", s.handler.HandleSend)
	mux.HandleFunc("/clear-session", s.handler.HandleClearSession)
	mux.HandleFunc("/disconnect", s.handler.HandleDisconnect)
	mux.HandleFunc("/messages", s.handler.HandleMessages)
	mux.HandleFunc("/stats", s.handler.HandleStats)

	utils.Logger.Info().Str("addr", addr).Msg("Starting REST API server")
	return http.ListenAndServe(addr, corsMiddleware(recoverMiddleware(loggingMiddleware(mux))))
}

// handleRoot serves the health banner on / and 404s everything else.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"message":   "WhatsApp Number Checker API",
		"timestamp": time.Now(),
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				utils.Logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panicked")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success":   false,
					"error":     "Internal server error",
					"timestamp": time.Now(),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		utils.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
