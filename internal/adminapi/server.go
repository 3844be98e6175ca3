// Package adminapi exposes the read-only admin/status surface spec.md
// §6 requires: health/readiness probes, per-connection status as JSON,
// and Prometheus metrics, fronted by a go-chi/chi/v5 router.
package adminapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/oonrumail/bearerbox/internal/smscconn"
)

// Server is the admin HTTP surface. router is the only thing the core
// needs to answer /status with; smsboxCount is optional (nil is fine).
type Server struct {
	router      *smscconn.Router
	smsboxCount func() int
	logger      *zap.Logger
	corsOrigins []string

	authUsername string
	authHash     string
}

// Option configures optional Server behavior not every deployment needs.
type Option func(*Server)

// WithCORSOrigins allows cross-origin GET requests from the given origins.
// Omitting this option (or passing an empty slice) disallows all of them.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithBasicAuth gates every route behind HTTP Basic Auth, checking the
// supplied password against passwordHash with bcrypt. Omitting this option
// leaves the admin surface unauthenticated, matching a deployment that
// relies on network-level access control instead.
func WithBasicAuth(username, passwordHash string) Option {
	return func(s *Server) { s.authUsername, s.authHash = username, passwordHash }
}

// HashPassword bcrypt-hashes password at the default cost, for operators
// generating an admin-password-hash value for their configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// NewServer builds a Server. smsboxCount may be nil if smsbox connection
// counting isn't wired yet.
func NewServer(router *smscconn.Router, smsboxCount func() int, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{router: router, smsboxCount: smsboxCount, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler to mount under cmd/bearerbox's listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{"GET"},
			MaxAge:         300,
		}))
	}
	if s.authHash != "" {
		r.Use(s.basicAuthMiddleware)
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Get("/status", s.statusAll)
	r.Get("/status/{id}", s.statusOne)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// basicAuthMiddleware rejects requests whose Basic Auth credentials don't
// match s.authUsername/s.authHash. The username compare is constant-time;
// the password compare goes through bcrypt, which already is.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		validUser := ok && subtle.ConstantTimeCompare([]byte(username), []byte(s.authUsername)) == 1
		validPass := ok && bcrypt.CompareHashAndPassword([]byte(s.authHash), []byte(password)) == nil
		if !validUser || !validPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="bearerbox admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.logger.Debug("adminapi: request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
