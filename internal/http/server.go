package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/store-ratings/internal/app"
	"github.com/Clark-Hu/store-ratings/internal/config"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/metrics"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	app     *app.App
	logger  zerolog.Logger
	limiter *rateLimiter
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, a *app.App, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	s := &Server{
		cfg:     cfg,
		app:     a,
		logger:  logger,
		limiter: newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		router:  r,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.limiter.Handler(s)).Post("/signup", s.handleSignup)
			r.With(s.limiter.Handler(s)).Post("/login", s.handleLogin)
			r.With(s.requireRoles()).Get("/me", s.handleMe)
			r.With(s.requireRoles()).Post("/password", s.handleChangePassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireRoles(domain.RoleAdmin))
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/{id}", s.handleGetUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Route("/stores", func(r chi.Router) {
			r.With(s.requireRoles()).Get("/", s.handleListStores)
			r.With(s.requireRoles(domain.RoleAdmin)).Post("/", s.handleCreateStore)
			r.Route("/{id}", func(r chi.Router) {
				r.With(s.requireRoles()).Get("/", s.handleGetStore)
				r.With(s.requireRoles(domain.RoleAdmin)).Delete("/", s.handleDeleteStore)
				r.With(s.requireRoles(domain.RoleAdmin)).Put("/owner", s.handleUpdateOwner)
				r.With(s.requireRoles(domain.RoleAdmin)).Post("/recompute", s.handleRecompute)
				r.With(s.requireRoles(domain.RoleAdmin, domain.RoleStoreOwner)).Get("/ratings", s.handleStoreRatings)
				r.With(s.requireRoles(domain.RoleUser, domain.RoleStoreOwner), s.limiter.Handler(s)).Post("/ratings", s.handleSubmitRating)
				r.With(s.requireRoles(domain.RoleUser, domain.RoleStoreOwner)).Get("/ratings/me", s.handleMyStoreRating)
			})
		})

		r.With(s.requireRoles(domain.RoleAdmin)).Get("/ratings", s.handleAllRatings)
		r.With(s.requireRoles(domain.RoleUser, domain.RoleStoreOwner)).Get("/me/ratings", s.handleMyRatings)
		r.With(s.requireRoles(domain.RoleAdmin)).Get("/dashboard/stats", s.handleDashboardStats)
	})
}

// Start boots the HTTP server and blocks until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	s.limiter.StartCleanup(ctx, limiterSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.app.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Dependency check failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
