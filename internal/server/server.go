// Package server provides the HTTP REST API for the opportunity pipeline.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/amizuno/winscope/internal/config"
	"github.com/amizuno/winscope/internal/db"
	"github.com/amizuno/winscope/internal/pipeline"
	"github.com/amizuno/winscope/internal/ratelimit"
)

// Config holds server configuration
type Config struct {
	Addr        string
	DatabaseURL string

	// Cycle holds everything needed to run a discovery cycle on demand.
	// Its Store is populated from the server's own database connection.
	Cycle pipeline.Options
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	cycleOpts   pipeline.Options
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService

	// In-memory scan tracking. Scans are cheap to re-trigger, so losing
	// this map on restart is acceptable.
	scanMu sync.Mutex
	scans  map[uuid.UUID]*scanState
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(context.Background()); err != nil {
		database.Close()
		return nil, err
	}

	cycleOpts := cfg.Cycle
	cycleOpts.Store = database
	if cycleOpts.Retry == nil {
		cycleOpts.Retry = pipeline.NewRetryQueue()
	}

	s := &Server{
		db:        database,
		cycleOpts: cycleOpts,
		scans:     make(map[uuid.UUID]*scanState),
	}

	// Burst of 30, refilling one token per second per client.
	s.rateLimiter = ratelimit.NewLimiter(30, 1.0)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Read-only query surface
	mux.HandleFunc("GET /opportunities", s.handleListOpportunities)
	mux.HandleFunc("GET /opportunities/{id}", s.handleGetOpportunity)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /scans/{id}", s.handleGetScan)

	// Mutations require a valid bearer token
	mux.Handle("POST /scans", s.withAuth(http.HandlerFunc(s.handleStartScan)))
	mux.Handle("POST /opportunities/{id}/advance", s.withAuth(http.HandlerFunc(s.handleAdvance)))
	mux.Handle("POST /opportunities/{id}/correct", s.withAuth(http.HandlerFunc(s.handleCorrect)))
	mux.Handle("POST /pricing", s.withAuth(http.HandlerFunc(s.handleAddPricing)))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.db.Close()
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds per-client rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(extractClientID(r)) {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// withAuth rejects requests without a valid bearer token
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := s.jwtService.ValidateToken(token); err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// extractClientID identifies the caller for rate limiting, preferring the
// forwarded address when behind a proxy.
func extractClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
