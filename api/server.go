// Package api exposes the Eco-Seed ledger over HTTP.
//
// Every route acts for the member resolved from the request; requests
// without a resolvable caller are rejected with 401 before the ledger is
// touched.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/ecoseed"
)

type contextKey string

const memberKey contextKey = "ecoseed-member"

// Server is the Eco-Seed HTTP API.
type Server struct {
	ledger   *ecoseed.Ledger
	identity IdentityResolver
	logger   *slog.Logger
	metrics  *httpMetrics
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithIdentity sets the caller resolver. The default is HeaderIdentity.
func WithIdentity(r IdentityResolver) Option {
	return func(s *Server) { s.identity = r }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request counts and latencies into reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Server) { s.metrics = newHTTPMetrics(reg) }
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates an API server for l.
func NewServer(l *ecoseed.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:   l,
		identity: HeaderIdentity{},
		logger:   slog.Default(),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	r.Use(s.logRequests)
	if s.metrics != nil {
		r.Use(s.metrics.middleware)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/categories", s.handleCategories)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/", s.handleSummary)
		r.Get("/profile", s.handleProfile)
		r.Get("/stats", s.handleStats)
		r.Get("/verify", s.handleVerify)

		r.Post("/earn", s.handleEarn)
		r.Post("/spend", s.handleSpend)
		r.Post("/convert", s.handleConvert)
		r.Post("/activity", s.handleActivity)
		r.Post("/earn/walking", s.handleEarnWalking)
		r.Post("/earn/quiz", s.handleEarnQuiz)
		r.Post("/earn/challenge", s.handleEarnChallenge)

		r.Get("/transactions", s.handleHistory)
		r.Get("/transactions/category/{category}", s.handleHistoryByCategory)
	})

	return r
}

// authenticate resolves the caller and stores it in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref, err := s.identity.ResolveMember(r)
		if err != nil {
			if !errors.Is(err, ecoseed.ErrUnauthenticated) {
				err = errors.Join(ecoseed.ErrUnauthenticated, err)
			}
			s.writeErr(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), memberKey, ref)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func memberFrom(ctx context.Context) string {
	ref, _ := ctx.Value(memberKey).(string)
	return ref
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    kind,
		},
	})
}

// statusFor maps a ledger error to an HTTP status.
func statusFor(err error) int {
	switch {
	case ecoseed.IsCommitted(err):
		return http.StatusInternalServerError
	case errors.Is(err, ecoseed.ErrInsufficientBalance),
		errors.Is(err, ecoseed.ErrBalanceOverflow),
		errors.Is(err, ecoseed.ErrBalanceDrift):
		return http.StatusConflict
	case ecoseed.IsNotFound(err):
		return http.StatusNotFound
	}
	switch ecoseed.KindOf(err) {
	case ecoseed.KindUnauthenticated:
		return http.StatusUnauthorized
	case ecoseed.KindValidation:
		return http.StatusBadRequest
	case ecoseed.KindPersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"member", memberFrom(r.Context()),
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		switch {
		case status == http.StatusServiceUnavailable:
			w.Header().Set("Retry-After", "1")
			msg = "storage temporarily unavailable"
		case ecoseed.IsCommitted(err):
			s.writeCommitted(w, err)
			return
		default:
			msg = "internal error"
		}
	}
	writeError(w, status, ecoseed.KindOf(err).String(), msg)
}

// writeCommitted tells the client the posting is durable so it does not
// repeat it.
func (s *Server) writeCommitted(w http.ResponseWriter, err error) {
	body := map[string]any{
		"message": "posting committed; summary unavailable, do not retry",
		"type":    ecoseed.KindCommitted.String(),
	}
	var ce *ecoseed.CommittedError
	if errors.As(err, &ce) && ce.Entry != nil {
		body["entry_id"] = ce.Entry.ID.String()
		body["sequence"] = ce.Entry.Sequence
		body["balance_after"] = ce.Entry.BalanceAfter
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": body})
}
