package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Years  YearsConfig  `yaml:"years" mapstructure:"years"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the federal obligations endpoint.
type APIConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	FundingAgencyID int     `yaml:"funding_agency_id" mapstructure:"funding_agency_id"`
	Limit           int     `yaml:"limit" mapstructure:"limit"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst       int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// YearsConfig bounds the selectable fiscal years.
type YearsConfig struct {
	Min     int `yaml:"min" mapstructure:"min"`
	Max     int `yaml:"max" mapstructure:"max"`
	Default int `yaml:"default" mapstructure:"default"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RefreshCron    string   `yaml:"refresh_cron" mapstructure:"refresh_cron"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OBLIGATIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "https://api.usaspending.gov/api/v2/federal_obligations/")
	v.SetDefault("api.funding_agency_id", 315)
	v.SetDefault("api.limit", 100)
	v.SetDefault("api.user_agent", "obligation-finder/1.0")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.rate_limit", 5)
	v.SetDefault("api.rate_burst", 5)
	v.SetDefault("years.min", 2019)
	v.SetDefault("years.max", 2025)
	v.SetDefault("years.default", 2019)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.refresh_cron", "")
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

// Validate checks the fields the given command mode depends on.
// Mode is one of "fetch" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}
	if c.API.Limit <= 0 {
		errs = append(errs, fmt.Sprintf("api.limit must be > 0, got %d", c.API.Limit))
	}
	if c.Years.Min > c.Years.Max {
		errs = append(errs, fmt.Sprintf("years.min %d is after years.max %d", c.Years.Min, c.Years.Max))
	} else if c.Years.Default < c.Years.Min || c.Years.Default > c.Years.Max {
		errs = append(errs, fmt.Sprintf("years.default %d outside %d..%d", c.Years.Default, c.Years.Min, c.Years.Max))
	}

	switch mode {
	case "fetch":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
