package tests

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskdeck/backend-go/internal/config"
)

func TestLoadConfig_Success(t *testing.T) {
	os.Setenv("API_SERVICE_PORT", "9090")
	os.Setenv("POSTGRESQL_PORT", "15432")
	os.Setenv("IDP_ISSUER", "https://idp.example.com")
	os.Setenv("IDP_AUDIENCE", "taskdeck-api")
	os.Setenv("DAILY_REQUEST_LIMIT", "250")
	defer os.Clearenv()

	cfg := config.LoadConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "9090", cfg.ApiServicePort)
	assert.Equal(t, int64(15432), cfg.PostgreSQLPort)
	assert.Equal(t, "https://idp.example.com", cfg.IDPIssuer)
	assert.Equal(t, "taskdeck-api", cfg.IDPAudience)
	assert.Equal(t, int64(250), cfg.DailyRequestLimit)
}

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := config.LoadConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8080", cfg.ApiServicePort)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, int64(5432), cfg.PostgreSQLPort)
	assert.Equal(t, int64(3600), cfg.IDPJWKSRefreshSecs)
	assert.Equal(t, int64(10000), cfg.DailyRequestLimit)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	os.Setenv("POSTGRESQL_PORT", "invalid")
	defer os.Clearenv()

	cfg := config.LoadConfig()

	// Should use default when invalid
	assert.NotNil(t, cfg)
	assert.Equal(t, int64(5432), cfg.PostgreSQLPort)
}

func TestLoadConfig_LogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg := config.LoadConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}
