// Package server exposes the generation pipelines and account routes over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/config"
	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/service/analytics"
	"github.com/kapu/pulse-kit-go/internal/service/idea"
	"github.com/kapu/pulse-kit-go/internal/service/ratelimit"
	"github.com/kapu/pulse-kit-go/internal/service/reply"
	"github.com/kapu/pulse-kit-go/internal/service/snippet"
)

// IdeaGenerator is satisfied by *idea.Engine.
type IdeaGenerator interface {
	GenerateIdeas(ctx context.Context, req domain.IdeasRequest, userID string) (*idea.Result, error)
}

// ReplyGenerator is satisfied by *reply.Copilot.
type ReplyGenerator interface {
	GenerateReplies(ctx context.Context, req domain.RepliesRequest, userID string) (*reply.Result, error)
}

// UsageReader summarizes rolling trend spend.
type UsageReader interface {
	Summary(ctx context.Context, userID string, now time.Time) (domain.TrendSummary, error)
}

// Analytics is satisfied by *analytics.Service.
type Analytics interface {
	OptIn(ctx context.Context, userID string) bool
	SetOptIn(ctx context.Context, userID string, enabled bool)
	LogFeatureEvent(ctx context.Context, event analytics.FeatureEvent)
	LogPanelEvent(ctx context.Context, userID string, eventType domain.EventType)
}

// AccountStore persists users and settings.
type AccountStore interface {
	UpsertUser(ctx context.Context, user domain.User) error
	UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error
}

// KeySaver encrypts and stores provider keys.
type KeySaver interface {
	SaveKeys(ctx context.Context, userID string, keys []domain.ProviderKey) error
}

// HealthCheck reports named component states.
type HealthCheck func(ctx context.Context) map[string]bool

// Dependencies are the services behind the routes. Accounts and Keys may be
// nil when persistence is disabled; Limiter may be nil to disable limiting.
type Dependencies struct {
	Ideas     IdeaGenerator
	Replies   ReplyGenerator
	Usage     UsageReader
	Analytics Analytics
	Accounts  AccountStore
	Keys      KeySaver
	Snippets  *snippet.Extractor
	Limiter   ratelimit.Limiter
	Tokens    *TokenIssuer
	Health    []HealthCheck
}

// Server is the HTTP API.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config
	logger     *zap.Logger

	ideas     IdeaGenerator
	replies   ReplyGenerator
	usage     UsageReader
	analytics Analytics
	accounts  AccountStore
	keys      KeySaver
	snippets  *snippet.Extractor
	limiter   ratelimit.Limiter
	tokens    *TokenIssuer
	health    []HealthCheck
	now       func() time.Time
}

func New(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Tokens == nil {
		deps.Tokens = NewTokenIssuer(cfg.Auth.JWTSecret)
	}
	if deps.Analytics == nil {
		deps.Analytics = analytics.NewService(nil, nil, logger)
	}
	if deps.Snippets == nil {
		deps.Snippets = snippet.NewExtractor(logger)
	}

	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		logger:    logger,
		ideas:     deps.Ideas,
		replies:   deps.Replies,
		usage:     deps.Usage,
		analytics: deps.Analytics,
		accounts:  deps.Accounts,
		keys:      deps.Keys,
		snippets:  deps.Snippets,
		limiter:   deps.Limiter,
		tokens:    deps.Tokens,
		health:    deps.Health,
		now:       time.Now,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/refresh", s.handleRefresh)
		r.Get("/health", s.handleAuthHealth)
	})

	s.router.Route("/ai", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.rateLimit)
		r.Post("/ideas", s.handleIdeas)
		r.Post("/replies", s.handleReplies)
		r.Post("/style-profile", s.handleStyleProfile)
	})

	s.router.Route("/metrics", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.rateLimit)
		r.Get("/trends", s.handleTrendMetrics)
	})

	s.router.Route("/analytics", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.rateLimit)
		r.Post("/events", s.handleAnalyticsEvent)
	})

	s.router.Route("/keys", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/", s.handleSaveKeys)
	})

	s.router.Route("/settings", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.requireScope(constants.AuthConfig.SettingsScope))
		r.Put("/", s.handleUpdateSettings)
	})

	s.router.Route("/snippets", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/extract", s.handleExtractSnippets)
	})
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.Duration("read_timeout", s.cfg.Server.ReadTimeout),
		zap.Duration("write_timeout", s.cfg.Server.WriteTimeout),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
