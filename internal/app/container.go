package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/config"
	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/server"
	"github.com/kapu/pulse-kit-go/internal/service/ai"
	"github.com/kapu/pulse-kit-go/internal/service/analytics"
	"github.com/kapu/pulse-kit-go/internal/service/cache"
	"github.com/kapu/pulse-kit-go/internal/service/database"
	"github.com/kapu/pulse-kit-go/internal/service/idea"
	"github.com/kapu/pulse-kit-go/internal/service/keys"
	"github.com/kapu/pulse-kit-go/internal/service/ratelimit"
	"github.com/kapu/pulse-kit-go/internal/service/reply"
	"github.com/kapu/pulse-kit-go/internal/service/snippet"
	"github.com/kapu/pulse-kit-go/internal/service/usage"
	"github.com/kapu/pulse-kit-go/internal/util"
)

// Container bundles the assembled services behind the HTTP server.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Models *ai.ModelManager
	Server *server.Server

	closers []func()
}

// Close releases infrastructure in reverse construction order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles every service. Redis and Postgres are optional: without a
// redis host the usage store and rate limiter stay in memory, and without a
// postgres host account routes are disabled and analytics is a no-op.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	var health []server.HealthCheck

	// Cache
	var (
		usageStore usage.Store
		limiter    ratelimit.Limiter
		prefCache  analytics.PreferenceCache
	)
	if cfg.Redis.Enabled() {
		cacheSvc, cacheErr := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", cacheErr)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
		if err := cacheSvc.WaitUntilReady(ctx, constants.RedisConfig.ReadyTimeout); err != nil {
			return nil, fmt.Errorf("redis not ready: %w", err)
		}

		usageStore = usage.NewRedisStore(cacheSvc, logger)
		limiter = ratelimit.NewRedisLimiter(cacheSvc, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)
		prefCache = cacheSvc
		health = append(health, func(ctx context.Context) map[string]bool {
			return map[string]bool{"redis": cacheSvc.IsConnected(ctx)}
		})
	} else {
		logger.Info("Redis disabled, using in-memory usage store and rate limiter")
		usageStore = usage.NewMemoryStore()
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// Database
	var (
		accounts       server.AccountStore
		keySaver       server.KeySaver
		analyticsStore analytics.Store
	)
	if cfg.Postgres.Enabled() {
		postgresSvc, dbErr := database.NewPostgresService(database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if dbErr != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", dbErr)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})
		if err := postgresSvc.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}

		userStore := database.NewUserStore(postgresSvc, logger)
		vault, vaultErr := keys.NewVault(cfg.Encryption.Key, userStore, logger)
		if vaultErr != nil {
			return nil, fmt.Errorf("failed to create key vault: %w", vaultErr)
		}

		accounts = userStore
		keySaver = vault
		analyticsStore = userStore
		health = append(health, func(ctx context.Context) map[string]bool {
			return map[string]bool{"postgres": postgresSvc.Ping(ctx) == nil}
		})
	} else {
		logger.Info("Postgres disabled, account routes answer 503 and analytics is off")
	}

	// AI stack
	models := ai.NewModelManager(ai.ModelManagerConfig{
		OpenAI: ai.ProviderSettings{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		},
		XAI: ai.ProviderSettings{
			APIKey:  cfg.XAI.APIKey,
			Model:   cfg.XAI.Model,
			BaseURL: cfg.XAI.BaseURL,
		},
		Default:        domain.ProviderChoice(cfg.Providers.Default),
		EnableFallback: cfg.Providers.EnableFallback,
	}, logger)
	health = append(health, models.Health, func(context.Context) map[string]bool {
		return map[string]bool{"llm_circuit": models.CircuitStatus().State != util.CircuitStateOpen}
	})

	trends := ai.NewTrendClient(models, models.HasProvider(domain.ProviderXAI), logger)
	engine := idea.NewEngine(
		ai.NewClusterClient(models),
		ai.NewIdeaClient(models),
		trends,
		usageStore,
		logger,
	)
	copilot := reply.NewCopilot(ai.NewReplyClient(models), logger)

	analyticsSvc := analytics.NewService(analyticsStore, prefCache, logger)

	srv := server.New(cfg, server.Dependencies{
		Ideas:     engine,
		Replies:   copilot,
		Usage:     usageStore,
		Analytics: analyticsSvc,
		Accounts:  accounts,
		Keys:      keySaver,
		Snippets:  snippet.NewExtractor(logger),
		Limiter:   limiter,
		Tokens:    server.NewTokenIssuer(cfg.Auth.JWTSecret),
		Health:    health,
	}, logger)

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Models:  models,
		Server:  srv,
		closers: closers,
	}, nil
}
