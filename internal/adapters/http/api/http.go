// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/adcraft/internal/adapters/adsplatform"
	service "github.com/okian/adcraft/internal/app"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
)

const (
	headerAccountID     = "X-Account-ID"
	headerCallbackToken = "X-Callback-Token"

	maxBodyBytes = 1 << 20
	corsMaxAge   = 300
)

// JobService is the part of the service layer the handlers drive.
type JobService interface {
	CreateJob(ctx context.Context, req service.CreateJobRequest) (*model.CreativeJob, error)
	GetJob(ctx context.Context, ownerID, jobID string) (*model.CreativeJob, error)
	Pause(ctx context.Context, ownerID, jobID string) (*model.CreativeJob, error)
	Resume(ctx context.Context, ownerID, jobID string) (*model.CreativeJob, error)
	Delete(ctx context.Context, ownerID, jobID string) error

	CompleteJob(ctx context.Context, jobID string, creatives []model.GeneratedCreative, deliveryID string) (model.CallbackOutcome, error)
	FailJob(ctx context.Context, jobID, message, deliveryID string) (model.CallbackOutcome, error)

	Winners(ctx context.Context, campaignID string, limit int) ([]model.WinningCreativeScore, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	jobs         JobService
	health       *HealthHandler
	stats        *StatsHandler
	assets       http.Handler
	extra        []func(chi.Router)
	origins      []string
	token        string
	requestLimit int64
	log          logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCallbackToken requires callers of the callback routes to send token in
// X-Callback-Token. Empty disables the check.
func WithCallbackToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithAssets serves h under /assets/ with the prefix stripped.
func WithAssets(h http.Handler) Option {
	return func(s *Server) { s.assets = h }
}

// WithRoutes lets other packages add routes to the root router.
func WithRoutes(fn func(chi.Router)) Option {
	return func(s *Server) {
		if fn != nil {
			s.extra = append(s.extra, fn)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(jobs JobService, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		jobs:         jobs,
		health:       NewHealthHandler(),
		stats:        NewStatsHandler(statsProvider),
		origins:      []string{"*"},
		requestLimit: maxBodyBytes,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", headerAccountID, headerCallbackToken},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.health.HandleHealth)
	r.Get("/stats", s.stats.HandleStats)
	if s.assets != nil {
		r.Handle("/assets/*", http.StripPrefix("/assets/", s.assets))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/formats", handleFormats)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateJob)
			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", s.handleGetJob)
				r.Delete("/", s.handleDeleteJob)
				r.Post("/pause", s.handlePauseJob)
				r.Post("/resume", s.handleResumeJob)
			})
		})

		r.Route("/callbacks", func(r chi.Router) {
			r.Use(s.requireCallbackToken)
			r.Post("/creatives", s.handleCreativesCallback)
			r.Post("/failures", s.handleFailureCallback)
		})

		r.Get("/campaigns/{campaignID}/winners", s.handleWinners)
	})

	for _, fn := range s.extra {
		fn(r)
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and platform errors to status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path), logger.Int("status", status), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrUnknownFormat):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound), errors.Is(err, adsplatform.ErrCampaignNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	}
	var pe *adsplatform.PlatformError
	if errors.As(err, &pe) {
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
