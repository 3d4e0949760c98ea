// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: it opens the store, builds the
// services and handlers on top of it, decides which URL maps to which
// handler and which middleware guards it, and runs the server until a
// shutdown signal arrives.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → storage.Open → repository.Repositories
//	              → service.*Service → handler.*Handler → routes
//
// Each layer only receives what it needs. Services get repository
// interfaces, handlers get services, and nothing below this package knows
// which database is in use.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/config"
	"github.com/sakif/bucketlist/internal/handler"
	"github.com/sakif/bucketlist/internal/middleware"
	"github.com/sakif/bucketlist/internal/service"
	"github.com/sakif/bucketlist/internal/storage"
)

// APIPrefix is the versioned mount point. Every route is also served at
// the root.
const APIPrefix = "/api/v1"

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the store connection and closes it when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  storage.Backend
	tokens *auth.TokenService
}

// New opens the database named by cfg.DatabaseURL, applies the schema and
// wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithStore(cfg, logger, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the server on an already open store. Tests use it with
// an in-memory SQLite database.
func NewWithStore(cfg *config.Config, logger *slog.Logger, store storage.Backend) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		tokens: tokens,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns an id the logger picks up
//  2. RealIP: trusts X-Forwarded-For from the proxy
//  3. Logger: one line per request, including recovered panics
//  4. Recoverer: turns a panic into a 500
//  5. CORS: answers preflight requests before routing
//  6. StripSlashes: /bucketlists/ and /bucketlists are one route
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(s.corsOptions()))
	s.router.Use(chimiddleware.StripSlashes)

	s.router.Get("/health", s.handleHealth)

	api := s.newAPI()
	api.mount(s.router)
	s.router.Route(APIPrefix, api.mount)
}

// api holds the handlers shared by the root and the versioned mount.
type api struct {
	root        chi.Routes
	requireAuth func(http.Handler) http.Handler
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	bucketlists *handler.BucketlistHandler
	items       *handler.ItemHandler
}

func (s *Server) newAPI() *api {
	repos := s.store.Repositories()
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	authService := service.NewAuthService(repos.Users, s.tokens, passwords, s.logger)
	userService := service.NewUserService(repos.Users, repos.Bucketlists, passwords, s.logger)
	bucketlistService := service.NewBucketlistService(repos.Bucketlists, s.logger)
	itemService := service.NewItemService(repos.Items, repos.Bucketlists, s.logger)

	return &api{
		root:        s.router,
		requireAuth: auth.RequireAuth(s.tokens, s.config.TokenHeader),
		auth:        handler.NewAuthHandler(authService, s.logger),
		users:       handler.NewUserHandler(userService, s.config.PageSize, s.logger),
		bucketlists: handler.NewBucketlistHandler(bucketlistService, s.config.PageSize, s.logger),
		items:       handler.NewItemHandler(itemService, s.config.PageSize, s.logger),
	}
}

// mount registers the API on r. It runs twice, once at the root and once
// under APIPrefix.
func (a *api) mount(r chi.Router) {
	r.Get("/", handler.HandleIndex(a.root))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.auth.HandleRegister)
		r.Post("/login", a.auth.HandleLogin)
		r.With(a.requireAuth).Get("/authenticate", a.auth.HandleAuthenticate)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Route("/bucketlists", func(r chi.Router) {
			r.Get("/", a.bucketlists.HandleList)
			r.Post("/", a.bucketlists.HandleCreate)

			// Static segments win over {id} in chi, so /items is never read
			// as a bucketlist id.
			r.Get("/items", a.items.HandleListAll)
			r.Get("/items/{id}", a.items.HandleGet)
			r.Put("/items/{id}", a.items.HandleUpdate)
			r.Delete("/items/{id}", a.items.HandleDelete)

			r.Get("/{id}", a.bucketlists.HandleGet)
			r.Put("/{id}", a.bucketlists.HandleUpdate)
			r.Delete("/{id}", a.bucketlists.HandleDelete)
			r.Get("/{id}/items", a.items.HandleListForBucketlist)
			r.Post("/{id}/items", a.items.HandleCreate)
		})

		r.Get("/search/{value}", a.bucketlists.HandleSearch)

		r.Get("/users", a.users.HandleList)
		r.Get("/user/{id}", a.users.HandleGet)
		r.Put("/user/{id}", a.users.HandleUpdate)
		r.Delete("/delete_user/{id}", a.users.HandleDelete)
	})
}

func (s *Server) corsOptions() cors.Options {
	header := s.config.TokenHeader
	if header == "" {
		header = auth.DefaultTokenHeader
	}
	return cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", header},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// handleHealth reports whether the database answers.
//
// HTTP: GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNAVAILABLE"))
		return
	}
	_, _ = w.Write([]byte("OK"))
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d%s", s.config.Port, APIPrefix)),
			slog.String("database", storage.Kind(s.config.DatabaseURL)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
