package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv                 string
	LogLevel               slog.Level
	ApiServicePort         string
	PostgreSQLHost         string
	PostgreSQLPort         int64
	PostgreSQLUser         string
	PostgreSQLPassword     string
	PostgreSQLDatabase     string
	JWTAccessSecret        string
	JWTRefreshSecret       string
	AccessTokenExpiration  int64 // Access token TTL in seconds
	RefreshTokenExpiration int64 // Refresh token TTL in seconds
	RedisHost              string
	RedisPort              int64
	RedisPassword          string
	RedisDatabase          int64
	RateLimitWindow        int64 // Rate limit window in seconds
	RateLimitMaxRequests   int64
	TokenCleanupInterval   int64 // Expired/revoked token sweep interval in seconds
}

func LoadConfig() *Config {
	return &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),                   // Default development
		LogLevel:               getLogLevel(),                                      // Default INFO
		ApiServicePort:         getEnv("API_SERVICE_PORT", "8080"),                 // Default 8080
		PostgreSQLHost:         getEnv("POSTGRESQL_HOST", "db"),                    // Default db
		PostgreSQLPort:         getEnvAsInt64("POSTGRESQL_PORT", 5432),             // Default 5432
		PostgreSQLUser:         getEnv("POSTGRESQL_USER", "authgate_user"),         // Default user
		PostgreSQLPassword:     getEnv("POSTGRESQL_PASSWORD", "authgate_password"), // Default password
		PostgreSQLDatabase:     getEnv("POSTGRESQL_DATABASE", "authgate_db"),       // Default database name
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),                    // Required, no default
		JWTRefreshSecret:       getEnv("JWT_REFRESH_SECRET", ""),                   // Required, no default
		AccessTokenExpiration:  getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 900),      // Default 15 minutes
		RefreshTokenExpiration: getEnvAsInt64("REFRESH_TOKEN_EXPIRATION", 2592000), // Default 30 days
		RedisHost:              getEnv("REDIS_HOST", "redis"),                      // Default redis
		RedisPort:              getEnvAsInt64("REDIS_PORT", 6379),                  // Default 6379
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),                       // Default empty
		RedisDatabase:          getEnvAsInt64("REDIS_DATABASE", 0),                 // Default 0
		RateLimitWindow:        getEnvAsInt64("RATE_LIMIT_WINDOW", 900),            // Default 15 minutes
		RateLimitMaxRequests:   getEnvAsInt64("RATE_LIMIT_MAX_REQUESTS", 100),      // Default 100 per window
		TokenCleanupInterval:   getEnvAsInt64("TOKEN_CLEANUP_INTERVAL", 3600),      // Default 1 hour
	}
}

// Validate checks the settings that have no safe default. The access and
// refresh signing secrets must both be set and must differ, so a leaked
// access key cannot be used to mint refresh tokens or the reverse.
func (c *Config) Validate() error {
	if c.JWTAccessSecret == "" {
		return errors.New("JWT_ACCESS_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		return errors.New("JWT_REFRESH_SECRET is required")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be distinct")
	}
	if c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 {
		return errors.New("token expirations must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
