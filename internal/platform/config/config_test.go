package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("INPI_EMAIL", "ops@example.com")
	t.Setenv("INPI_PASSWORD", "secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DefaultRegistryURL, cfg.Registry.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, time.Hour, cfg.Registry.TokenValidity)
	assert.Equal(t, 2, cfg.Registry.MaxRetries)
	assert.Zero(t, cfg.Registry.RateLimit)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "siren.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SIREN_ADDR", ":9090")
	t.Setenv("INPI_BASE_URL", "http://localhost:4010")
	t.Setenv("INPI_TIMEOUT", "2s")
	t.Setenv("INPI_TOKEN_VALIDITY", "30m")
	t.Setenv("INPI_MAX_RETRIES", "0")
	t.Setenv("INPI_RATE_LIMIT", "2.5")
	t.Setenv("INPI_RATE_BURST", "3")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://siren@localhost/siren?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,broker-1:9092,")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:4010", cfg.Registry.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Registry.TokenValidity)
	assert.Equal(t, 0, cfg.Registry.MaxRetries)
	assert.Equal(t, 2.5, cfg.Registry.RateLimit)
	assert.Equal(t, 3, cfg.Registry.RateBurst)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("credentials are required", func(t *testing.T) {
		t.Setenv("INPI_EMAIL", "")
		t.Setenv("INPI_PASSWORD", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "INPI_EMAIL and INPI_PASSWORD are required")
	})

	t.Run("unparsable values are reported together", func(t *testing.T) {
		setRequired(t)
		t.Setenv("INPI_TIMEOUT", "soon")
		t.Setenv("INPI_MAX_RETRIES", "many")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "INPI_TIMEOUT")
		assert.ErrorContains(t, err, "INPI_MAX_RETRIES")
	})

	t.Run("unknown log format", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOG_FORMAT", "xml")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "LOG_FORMAT")
	})
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("INPI_EMAIL=file@example.com\nINPI_PASSWORD=from-file\nSIREN_ADDR=:7070\n"), 0o600))
	// godotenv never overrides variables that are already set
	t.Setenv("SIREN_ADDR", ":6060")
	for _, key := range []string{"INPI_EMAIL", "INPI_PASSWORD"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.Registry.Email)
	assert.Equal(t, ":6060", cfg.Server.Addr)
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	setRequired(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
