// Package server provides HTTP server setup and routing. Every route is
// registered under server.prefix and wrapped with request logging and
// panic recovery.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/thalib/uiconf/cmd/uiconf/internal/config"
	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/handlers"
	"github.com/thalib/uiconf/cmd/uiconf/internal/health"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
	"github.com/thalib/uiconf/cmd/uiconf/internal/middleware"
)

// Dependencies are the services the routes are built from.
type Dependencies struct {
	Ratios   handlers.RatioStore
	Tasks    handlers.TaskStore
	Activity handlers.ActivityStore
	Fetcher  handlers.UpstreamFetcher
	Health   *health.Service
	Logger   *logging.Logger
}

// Server represents the HTTP server
type Server struct {
	config *config.AppConfig
	deps   Dependencies
	mux    *http.ServeMux
	server *http.Server
	logger *logging.Logger
	errors *apierrors.ErrorHandler
	reqLog *logging.RequestLogger
}

// New creates a server with all routes registered.
func New(cfg *config.AppConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	mux := http.NewServeMux()
	prefix := cfg.Server.Prefix

	srv := &Server{
		config: cfg,
		deps:   deps,
		mux:    mux,
		logger: logger,
		errors: apierrors.NewErrorHandler(apierrors.ErrorHandlerConfig{
			LogStackTrace: cfg.Logging.Level == string(logging.LevelDebug),
			Logger:        logger,
		}),
		reqLog: logging.NewRequestLogger(logger, prefix+constants.RouteHealth, prefix+constants.RouteHealthReady),
		server: &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
			ReadTimeout:  constants.HTTPReadTimeout,
			WriteTimeout: constants.HTTPWriteTimeout,
			IdleTimeout:  constants.HTTPIdleTimeout,
		},
	}

	srv.setupRoutes()
	srv.server.Handler = srv.Handler()
	return srv
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	prefix := s.config.Server.Prefix
	maxPageSize := s.config.Pagination.MaxPageSize

	auth := middleware.NewJWTMiddleware(middleware.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}, s.errors)
	admin := func(h http.HandlerFunc) http.HandlerFunc { return auth.RequireRole(constants.RoleAdmin, h) }

	frontend := handlers.NewFrontendHandler(prefix, prefix+s.config.Ratio.Endpoint, s.errors)
	ratios := handlers.NewRatioHandler(s.deps.Ratios, s.config.Ratio.Expose, maxPageSize, s.errors)
	syncHandler := handlers.NewSyncHandler(s.deps.Ratios, s.deps.Fetcher, s.errors)
	taskHandler := handlers.NewTaskHandler(s.deps.Tasks, s.deps.Activity, maxPageSize, s.errors)

	s.handle("GET "+prefix+"/{$}", s.rootHandler)

	if s.deps.Health != nil {
		s.handle("GET "+prefix+constants.RouteHealth, s.deps.Health.LivenessHandler)
		s.handle("GET "+prefix+constants.RouteHealthReady, s.deps.Health.ReadinessHandler)
	}

	s.handle("GET "+prefix+constants.RouteFrontendConstants, frontend.Constants)

	s.handle("GET "+prefix+s.config.Ratio.Endpoint, ratios.Exposed)
	s.handle("GET "+prefix+constants.RouteRatioModels, ratios.List)
	s.handle("POST "+prefix+constants.RouteRatioModels, admin(ratios.Upsert))
	s.handle("DELETE "+prefix+constants.RouteRatioModels+"/{model}", admin(ratios.Delete))

	s.handle("POST "+prefix+constants.RouteRatioSyncFetch, admin(syncHandler.Fetch))

	s.handle("POST "+prefix+constants.RouteTask, auth.Authenticate(taskHandler.Create))
	s.handle("GET "+prefix+constants.RouteTask, auth.Authenticate(taskHandler.List))
	s.handle("GET "+prefix+constants.RouteTask+"/{id}", auth.Authenticate(taskHandler.Get))
	s.handle("POST "+prefix+constants.RouteTask+"/{id}/status", admin(taskHandler.UpdateStatus))

	if s.deps.Activity != nil {
		activityHandler := handlers.NewActivityHandler(s.deps.Activity, maxPageSize, s.errors)
		s.handle("GET "+prefix+constants.RouteLog, auth.Authenticate(activityHandler.List))
	}

	s.handle("/", frontend.NotFound)
}

// handle registers h behind request logging and panic recovery.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.reqLog.Middleware(s.errors.RecoveryMiddleware(h)))
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(constants.HeaderContentType, constants.MIMETextPlain)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, config.RootMessage)
}

// Handler returns the routed handler behind CORS.
func (s *Server) Handler() http.Handler {
	return middleware.NewCORSMiddleware(middleware.CORSConfig{
		Enabled:          s.config.CORS.Enabled,
		AllowedOrigins:   s.config.CORS.AllowedOrigins,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           s.config.CORS.MaxAge,
	}).Handle(s.mux)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// constants.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting server on %s", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("could not stop server gracefully: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown timed out: %w", err)
		}
	}

	return nil
}
