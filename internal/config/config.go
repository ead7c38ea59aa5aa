package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	AppVersion     string
	LogLevel       slog.Level
	ApiServicePort string

	PostgreSQLHost     string
	PostgreSQLPort     int64
	PostgreSQLUser     string
	PostgreSQLPassword string
	PostgreSQLDatabase string

	RedisHost     string
	RedisPort     int64
	RedisPassword string
	RedisDB       int64

	// Identity provider settings. When IDPDevSecret is set the service
	// verifies tokens with HS256 instead of fetching the provider's JWKS.
	IDPIssuer          string
	IDPAudience        string
	IDPJWKSURL         string
	IDPJWKSRefreshSecs int64
	IDPDevSecret       string

	DailyRequestLimit int64
}

func LoadConfig() *Config {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),   // Default development
		AppVersion:     getEnv("APP_VERSION", "dev"),       // Default dev
		LogLevel:       getLogLevel(),                      // Default INFO
		ApiServicePort: getEnv("API_SERVICE_PORT", "8080"), // Default 8080

		PostgreSQLHost:     getEnv("POSTGRESQL_HOST", "db"),                    // Default db
		PostgreSQLPort:     getEnvAsInt64("POSTGRESQL_PORT", 5432),             // Default 5432
		PostgreSQLUser:     getEnv("POSTGRESQL_USER", "taskdeck_user"),         // Default user
		PostgreSQLPassword: getEnv("POSTGRESQL_PASSWORD", "taskdeck_password"), // Default password
		PostgreSQLDatabase: getEnv("POSTGRESQL_DATABASE", "taskdeck_db"),       // Default database name

		RedisHost:     getEnv("REDIS_HOST", "redis"),      // Default redis
		RedisPort:     getEnvAsInt64("REDIS_PORT", 6379),  // Default 6379
		RedisPassword: getEnv("REDIS_PASSWORD", ""),       // Default empty
		RedisDB:       getEnvAsInt64("REDIS_DATABASE", 0), // Default 0

		IDPIssuer:          getEnv("IDP_ISSUER", ""),
		IDPAudience:        getEnv("IDP_AUDIENCE", ""),
		IDPJWKSURL:         getEnv("IDP_JWKS_URL", ""),
		IDPJWKSRefreshSecs: getEnvAsInt64("IDP_JWKS_REFRESH", 3600), // Default 1 hour
		IDPDevSecret:       getEnv("IDP_DEV_SECRET", ""),

		DailyRequestLimit: getEnvAsInt64("DAILY_REQUEST_LIMIT", 10000), // Default 10k requests/day
	}
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
