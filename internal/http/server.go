package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/prediction"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ProfileAPI is the profile service as seen by the handlers.
type ProfileAPI interface {
	FetchOrCreate(ctx context.Context, email string) (*core.Profile, error)
	BulkUpdate(ctx context.Context, email string, update core.ProfileUpdate) (*core.Profile, error)
	AddTransaction(ctx context.Context, email string, in core.EntryInput) (*core.Profile, error)
	RemoveTransaction(ctx context.Context, email string, index int) (*core.Profile, error)
	Ready(ctx context.Context) error
}

// Predictor answers prediction requests, falling back on failure.
type Predictor interface {
	Predict(ctx context.Context, snapshot []byte) prediction.Result
}

// Options configures NewServer.
type Options struct {
	Addr              string
	Profiles          ProfileAPI
	Predictor         Predictor
	Logger            *log.Logger
	RequestsPerMinute int
	TrustedProxies    []string
}

type Server struct {
	http.Server
	profiles  ProfileAPI
	predictor Predictor
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Wrap(slog.Default(), log.ComponentHTTP)
	} else {
		logger = logger.WithComponent(log.ComponentHTTP)
	}

	ips := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		profiles:  opts.Profiles,
		predictor: opts.Predictor,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:    trace.NewMiddleware(logger, ips.ExtractClientIP),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(s.limiter.Middleware(ips.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(api chi.Router) {
		api.Post("/predict", s.handlePredict)
		api.Get("/user/{email}", s.handleGetUser)
		api.Post("/user/update", s.handleUpdateUser)
		api.Post("/transaction", s.handleAddTransaction)
		api.Delete("/transaction/{email}/{index}", s.handleDeleteTransaction)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", "").Write(w)
	})

	s.Handler = r
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		m := s.tracer.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"total_requests", m.TotalRequests,
			"avg_response_us", m.AverageResponseTime)
	})
	return shutdownErr
}
