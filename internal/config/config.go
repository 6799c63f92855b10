package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Google   GoogleConfig   `yaml:"google" mapstructure:"google"`
	Quota    QuotaConfig    `yaml:"quota" mapstructure:"quota"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Google Maps API settings.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// RateLimit is the client-side requests-per-second budget.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// QuotaConfig configures the usage-quota store and tier limits.
type QuotaConfig struct {
	// Store selects the backend: memory, sqlite, or postgres.
	Store       string `yaml:"store" mapstructure:"store"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`

	WindowHours        int `yaml:"window_hours" mapstructure:"window_hours"`
	SweepIntervalMins  int `yaml:"sweep_interval_mins" mapstructure:"sweep_interval_mins"`
	AnonymousSearches  int `yaml:"anonymous_searches" mapstructure:"anonymous_searches"`
	AnonymousResultCap int `yaml:"anonymous_result_cap" mapstructure:"anonymous_result_cap"`
	StarterSearches    int `yaml:"starter_searches" mapstructure:"starter_searches"`
	ProSearches        int `yaml:"pro_searches" mapstructure:"pro_searches"`
}

// Window returns the quota window as a duration.
func (q QuotaConfig) Window() time.Duration {
	return time.Duration(q.WindowHours) * time.Hour
}

// SweepInterval returns the background sweep cadence.
func (q QuotaConfig) SweepInterval() time.Duration {
	return time.Duration(q.SweepIntervalMins) * time.Minute
}

// PipelineConfig configures discovery behavior.
type PipelineConfig struct {
	DefaultRadiusMiles float64 `yaml:"default_radius_miles" mapstructure:"default_radius_miles"`
	PageDelaySecs      int     `yaml:"page_delay_secs" mapstructure:"page_delay_secs"`
	MaxPages           int     `yaml:"max_pages" mapstructure:"max_pages"`
	EnrichWorkers      int     `yaml:"enrich_workers" mapstructure:"enrich_workers"`
	// FallbackPolicy is lenient or strict.
	FallbackPolicy string `yaml:"fallback_policy" mapstructure:"fallback_policy"`
	// SynonymFile optionally extends the built-in category synonym table.
	SynonymFile string `yaml:"synonym_file" mapstructure:"synonym_file"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given run mode ("discover" or
// "serve"). All problems are reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "discover", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Google.APIKey == "" {
		problems = append(problems, "google.api_key is required")
	}

	switch c.Quota.Store {
	case "memory":
	case "sqlite":
		if c.Quota.SQLitePath == "" {
			problems = append(problems, "quota.sqlite_path is required for the sqlite store")
		}
	case "postgres":
		if c.Quota.DatabaseURL == "" {
			problems = append(problems, "quota.database_url is required for the postgres store")
		}
	default:
		problems = append(problems, "quota.store must be memory, sqlite, or postgres")
	}

	if c.Quota.WindowHours <= 0 {
		problems = append(problems, "quota.window_hours must be > 0")
	}
	if c.Pipeline.MaxPages < 1 || c.Pipeline.MaxPages > 20 {
		problems = append(problems, "pipeline.max_pages must be between 1 and 20")
	}
	if c.Pipeline.EnrichWorkers < 1 || c.Pipeline.EnrichWorkers > 32 {
		problems = append(problems, "pipeline.enrich_workers must be between 1 and 32")
	}
	switch c.Pipeline.FallbackPolicy {
	case "lenient", "strict":
	default:
		problems = append(problems, "pipeline.fallback_policy must be lenient or strict")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("quota.store", "memory")
	v.SetDefault("quota.sqlite_path", "leadfinder.db")
	v.SetDefault("quota.window_hours", 24)
	v.SetDefault("quota.sweep_interval_mins", 60)
	v.SetDefault("quota.anonymous_searches", 5)
	v.SetDefault("quota.anonymous_result_cap", 15)
	v.SetDefault("quota.starter_searches", 25)
	v.SetDefault("quota.pro_searches", 100)
	v.SetDefault("pipeline.default_radius_miles", 3.0)
	v.SetDefault("pipeline.page_delay_secs", 2)
	v.SetDefault("pipeline.max_pages", 10)
	v.SetDefault("pipeline.enrich_workers", 4)
	v.SetDefault("pipeline.fallback_policy", "lenient")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
