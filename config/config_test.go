package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmesh/watchtower-backend/logger"
)

func init() {
	logger.IsTest = true
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "watchtower_dev", cfg.Database.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 5, cfg.Tracker.ReportIntervalMinutes)
	assert.Equal(t, 24, cfg.Tracker.PatternWindowHours)
	assert.Equal(t, 120, cfg.Tracker.IngestRequestsPerMinute)
	assert.Equal(t, 5, cfg.Tracker.PublishTimeoutSeconds)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_ENVIRONMENT", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("REDIS_ADDRESS", "redis.internal:6380")
	t.Setenv("TRACKER_REPORT_INTERVAL_MINUTES", "15")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Server.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Address)
	assert.Equal(t, 15, cfg.Tracker.ReportIntervalMinutes)
}

func TestLoadConfigRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("SERVER_ENVIRONMENT", "staging")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown environment")
}

func TestLoadConfigRejectsBadInterval(t *testing.T) {
	t.Setenv("TRACKER_REPORT_INTERVAL_MINUTES", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestDatabaseURL(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "watchtower",
		Password: "p@ss/word",
		Name:     "watchtower_prod",
		SSLMode:  "require",
	}

	url := cfg.URL()
	assert.Contains(t, url, "postgres://watchtower:")
	assert.Contains(t, url, "@db.internal:5432/watchtower_prod")
	assert.Contains(t, url, "sslmode=require")
	assert.NotContains(t, url, "p@ss/word", "password must be escaped")
}

func TestDatabaseURLDefaultsSSLMode(t *testing.T) {
	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "watchtower_dev"}
	assert.Contains(t, cfg.URL(), "sslmode=disable")
}
