// Package devserver is a self-contained implementation of the todo API
// backed by the local SQLite store. It serves `todoctl serve` and the test
// suite's fake backend.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/todoctl/internal/logging"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/store"
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 30 * time.Minute

// Server handles the /api routes.
type Server struct {
	store    *store.SQLiteStore
	log      *slog.Logger
	tokenTTL time.Duration
	cost     int
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = logging.Component(l, "devserver") }
}

// WithTokenTTL overrides the access token lifetime.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithPasswordCost sets the bcrypt cost used when registering accounts.
func WithPasswordCost(cost int) Option {
	return func(s *Server) { s.cost = cost }
}

// New builds a server over st.
func New(st *store.SQLiteStore, opts ...Option) *Server {
	s := &Server{
		store:    st,
		log:      logging.Discard(),
		tokenTTL: DefaultTokenTTL,
		cost:     bcrypt.DefaultCost,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	s.mux.HandleFunc("GET /api/todos", s.requireAuth(s.handleListTodos))
	s.mux.HandleFunc("POST /api/todos", s.requireAuth(s.handleCreateTodo))
	s.mux.HandleFunc("PUT /api/todos/reorder", s.requireAuth(s.handleReorder))
	s.mux.HandleFunc("PUT /api/todos/bulk", s.requireAuth(s.handleBulk))
	s.mux.HandleFunc("PUT /api/todos/{id}", s.requireAuth(s.handleUpdateTodo))
	s.mux.HandleFunc("DELETE /api/todos/{id}", s.requireAuth(s.handleDeleteTodo))
}

// ServeHTTP logs and dispatches a request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.mux.ServeHTTP(sw, r)
	s.log.Info("http",
		"method", r.Method,
		"path", r.URL.Path,
		"status", sw.status,
		"request_id", r.Header.Get("X-Request-ID"),
		"dur_ms", time.Since(start).Milliseconds(),
	)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type ctxKey struct{}

func userFrom(r *http.Request) model.User {
	u, _ := r.Context().Value(ctxKey{}).(model.User)
	return u
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		u, err := s.store.UserByToken(r.Context(), strings.TrimSpace(token))
		if errors.Is(err, store.ErrNotFound) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if err != nil {
			s.log.Error("resolve token", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !u.IsActive {
			writeError(w, http.StatusBadRequest, "Inactive user")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
