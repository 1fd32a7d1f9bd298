// Package api exposes the validation service over HTTP under /api/v1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tricktrack/tricktrack/internal/adapters/repository"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/pkg/logger"
	"github.com/tricktrack/tricktrack/pkg/metrics"
)

// BasePath prefixes every business route.
const BasePath = "/api/v1"

const defaultMaxListLimit = 100

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Create(ctx context.Context, skaterID, trick, videoURL string) (model.Validation, error)
	Get(ctx context.Context, id string) (model.Validation, error)
	List(ctx context.Context, f repository.Filter) ([]model.Validation, error)
	SubmitScore(ctx context.Context, id string, score model.Score) (model.Validation, error)
	Finalize(ctx context.Context, id string) (model.Validation, error)
	Fail(ctx context.Context, id, reason string) (model.Validation, error)

	Balance(ctx context.Context, userID string) (model.TokenBalance, error)
	Transactions(ctx context.Context, userID string) ([]model.TokenTransaction, error)
	Badges(ctx context.Context, userID string) ([]model.Badge, error)

	MinValidators() int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Patterns may contain one "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMaxListLimit caps the list page size.
func WithMaxListLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxListLimit = n
		}
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	allowedOrigins []string
	maxListLimit   int
	version        string
	logger         logger.Logger
	now            func() time.Time
}

// NewServer creates an API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		stats:          stats,
		allowedOrigins: []string{"http://localhost:3000", "https://*.vercel.app"},
		maxListLimit:   defaultMaxListLimit,
		version:        "1.0.0",
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	return s
}

// Routes builds the router. Extra registrars, such as the API docs, are
// mounted on the same router.
func (s *Server) Routes(extra ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS(s.allowedOrigins))
	r.Use(MetricsMiddleware)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/stats", s.handleStats)

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/tricks", s.handleTricks)

		r.Route("/validations", func(r chi.Router) {
			r.Post("/", s.handleCreate)
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleGet)
			r.Post("/{id}/scores", s.handleSubmitScore)
			r.Post("/{id}/finalize", s.handleFinalize)
			r.Post("/{id}/fail", s.handleFail)
		})

		r.Get("/balances/{userId}", s.handleBalance)
	})

	for _, register := range extra {
		register(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})
	return r
}

// envelope is the shape of every /api/v1 response.
type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data, Timestamp: s.now().UTC()})
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     &errorBody{Code: code, Message: msg, Details: details},
		Timestamp: s.now().UTC(),
	})
}

// writeDomainError maps service errors onto HTTP statuses. Internal errors
// are logged and reported without their message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestID", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	s.writeError(w, status, code, msg, nil)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
