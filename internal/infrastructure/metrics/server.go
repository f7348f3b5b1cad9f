package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	healthTimeout     = 2 * time.Second
)

// HealthFunc reports whether the node is healthy.
type HealthFunc func(ctx context.Context) error

// Server exposes /metrics and /healthz over HTTP.
type Server struct {
	srv     *http.Server
	ln      net.Listener
	onError func(error)
}

// NewServer builds the HTTP server. A nil health func always reports ok.
//
// Parameters:
//   - listen: Address to bind, e.g. ":9102"
//   - c: Collector whose registry is served at /metrics
//   - health: Probe behind /healthz
//
// Returns:
//   - *Server: Ready to Start
func NewServer(listen string, c *Collector, health HealthFunc) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              listen,
			Handler:           Handler(c, health),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Handler returns the router serving both endpoints.
func Handler(c *Collector, health HealthFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		code := http.StatusOK
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := health(ctx); err != nil {
				body = map[string]string{"status": "unhealthy", "error": err.Error()}
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, body)
	})
	return r
}

// recoverer turns a handler panic into a 500 response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"status": "error",
					"error":  fmt.Sprint(err),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck // client went away
}

// SetOnError registers a callback for serve failures after Start.
func (s *Server) SetOnError(fn func(error)) {
	s.onError = fn
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && s.onError != nil {
			s.onError(err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
