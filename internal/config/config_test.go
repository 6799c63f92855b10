package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://maps.googleapis.com/maps/api", cfg.Google.BaseURL)
	assert.InDelta(t, 10.0, cfg.Google.RateLimit, 0.001)
	assert.Equal(t, "memory", cfg.Quota.Store)
	assert.Equal(t, 24, cfg.Quota.WindowHours)
	assert.Equal(t, 5, cfg.Quota.AnonymousSearches)
	assert.Equal(t, 15, cfg.Quota.AnonymousResultCap)
	assert.Equal(t, 25, cfg.Quota.StarterSearches)
	assert.Equal(t, 100, cfg.Quota.ProSearches)
	assert.InDelta(t, 3.0, cfg.Pipeline.DefaultRadiusMiles, 0.001)
	assert.Equal(t, 2, cfg.Pipeline.PageDelaySecs)
	assert.Equal(t, 10, cfg.Pipeline.MaxPages)
	assert.Equal(t, 4, cfg.Pipeline.EnrichWorkers)
	assert.Equal(t, "lenient", cfg.Pipeline.FallbackPolicy)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
google:
  api_key: test-key
quota:
  store: sqlite
  sqlite_path: /var/lib/leadfinder/quota.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Google.APIKey)
	assert.Equal(t, "sqlite", cfg.Quota.Store)
	assert.Equal(t, "/var/lib/leadfinder/quota.db", cfg.Quota.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Pipeline.MaxPages)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
quota:
  store: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADFINDER_QUOTA_STORE", "postgres")
	t.Setenv("LEADFINDER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Quota.Store)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADFINDER_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestQuotaDurations(t *testing.T) {
	q := QuotaConfig{WindowHours: 24, SweepIntervalMins: 60}
	assert.Equal(t, 24*time.Hour, q.Window())
	assert.Equal(t, time.Hour, q.SweepInterval())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config that passes validation in serve mode.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Google.APIKey = "test-key"
	cfg.Quota.Store = "memory"
	cfg.Quota.WindowHours = 24
	cfg.Pipeline.MaxPages = 10
	cfg.Pipeline.EnrichWorkers = 4
	cfg.Pipeline.FallbackPolicy = "lenient"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
	assert.NoError(t, validDefaults().Validate("discover"))
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Google.APIKey = ""

	err := cfg.Validate("discover")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "google.api_key is required")
}

func TestValidate_StoreRequirements(t *testing.T) {
	cfg := validDefaults()
	cfg.Quota.Store = "postgres"
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota.database_url is required")

	cfg.Quota.DatabaseURL = "postgres://localhost/leads"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Quota.Store = "sqlite"
	cfg.Quota.SQLitePath = ""
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota.sqlite_path is required")

	cfg.Quota.Store = "redis"
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota.store must be memory, sqlite, or postgres")
}

func TestValidate_PipelineBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.MaxPages = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.max_pages must be between 1 and 20")

	cfg.Pipeline.MaxPages = 10
	cfg.Pipeline.EnrichWorkers = 33
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.enrich_workers must be between 1 and 32")

	cfg.Pipeline.EnrichWorkers = 4
	cfg.Pipeline.FallbackPolicy = "maybe"
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.fallback_policy must be lenient or strict")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// Port is not required outside serve mode.
	assert.NoError(t, cfg.Validate("discover"))
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_ReportsAllProblemsAtOnce(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.api_key is required")
	assert.Contains(t, err.Error(), "quota.store must be")
	assert.Contains(t, err.Error(), "server.port must be > 0")
}
