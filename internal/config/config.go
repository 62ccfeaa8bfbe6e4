package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/pulse-kit-go/internal/constants"
)

type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	Auth       AuthConfig
	OpenAI     ProviderConfig
	XAI        ProviderConfig
	Providers  ProvidersConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

type CORSConfig struct {
	WebOrigin       string
	ExtensionOrigin string
	AllowedOrigins  []string
}

type AuthConfig struct {
	JWTSecret       string
	SessionSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type ProvidersConfig struct {
	Default        string
	EnableFallback bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a redis host was configured.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Enabled reports whether a postgres host was configured.
func (c PostgresConfig) Enabled() bool { return c.Host != "" }

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type LoggingConfig struct {
	Level  string
	File   string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	webOrigin := getEnv("WEB_ORIGIN", "http://localhost:5173")
	extensionOrigin := getEnv("EXTENSION_ORIGIN", "chrome-extension://mock-id")
	jwtSecret := getEnv("JWT_SECRET", "change_me")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           getEnvInt("PORT", 8787),
			ReadTimeout:    time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)) * time.Second,
			WriteTimeout:   time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 90)) * time.Second,
			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 75)) * time.Second,
		},
		CORS: CORSConfig{
			WebOrigin:       webOrigin,
			ExtensionOrigin: extensionOrigin,
			AllowedOrigins: append(
				[]string{webOrigin, extensionOrigin},
				parseCommaSeparated(getEnv("CORS_EXTRA_ORIGINS", ""))...,
			),
		},
		Auth: AuthConfig{
			JWTSecret:       jwtSecret,
			SessionSecret:   getEnv("SESSION_TOKEN_SECRET", jwtSecret),
			AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_SECONDS", 900)) * time.Second,
			RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		},
		OpenAI: ProviderConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", constants.ProviderConfig.OpenAIModel),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		XAI: ProviderConfig{
			APIKey:  getEnv("XAI_API_KEY", ""),
			Model:   getEnv("XAI_MODEL", constants.ProviderConfig.XAIModel),
			BaseURL: getEnv("XAI_BASE_URL", constants.ProviderConfig.XAIBaseURL),
		},
		Providers: ProvidersConfig{
			Default:        strings.ToLower(getEnv("DEFAULT_PROVIDER", "openai")),
			EnableFallback: getEnvBool("PROVIDER_ENABLE_FALLBACK", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", ""),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "pulse"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "pulse"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("BYO_ENCRYPTION_KEY", jwtSecret),
		},
		RateLimit: RateLimitConfig{
			Limit:  getEnvInt("RATE_LIMIT_PER_WINDOW", constants.RateLimitConfig.Limit),
			Window: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", int(constants.RateLimitConfig.Window/time.Second))) * time.Second,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			File:   getEnv("LOG_FILE", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_WINDOW must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	switch c.Providers.Default {
	case "openai", "xai":
	default:
		return fmt.Errorf("DEFAULT_PROVIDER must be openai or xai, got %q", c.Providers.Default)
	}
	if strings.TrimSpace(c.Encryption.Key) == "" {
		return fmt.Errorf("BYO_ENCRYPTION_KEY is required")
	}
	return nil
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
