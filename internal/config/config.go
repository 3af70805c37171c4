package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Trigger  TriggerConfig  `json:"trigger"`
	Report   ReportConfig   `json:"report"`
	Schedule ScheduleConfig `json:"schedule"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents the worker's HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL string `json:"url"`
}

// TriggerConfig configures the scraping API call that gates generation
type TriggerConfig struct {
	URL       string        `json:"url"`
	AuthKey   string        `json:"auth_key"`
	Subreddit string        `json:"subreddit"`
	Top       int           `json:"top"`
	Timeout   time.Duration `json:"timeout"`
}

// ReportConfig configures extraction and rendering
type ReportConfig struct {
	OutputPath     string        `json:"output_path"`
	RankCutoff     int           `json:"rank_cutoff"`
	WrapWidth      int           `json:"wrap_width"`
	MediaTimeout   time.Duration `json:"media_timeout"`
	MediaMaxSize   int64         `json:"media_max_size"`
	MediaMaxPixels int64         `json:"media_max_pixels"`
	FontFile       string        `json:"font_file,omitempty"`
	ExtraFormats   []string      `json:"extra_formats,omitempty"`
}

// ScheduleConfig configures the worker's cron schedule
type ScheduleConfig struct {
	Cron     string        `json:"cron"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// ConfigurationError reports required settings that are missing or invalid.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

// Default returns the configuration defaults. Required settings are left empty.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Trigger: TriggerConfig{
			Subreddit: "memes",
			Top:       20,
			Timeout:   60 * time.Second,
		},
		Report: ReportConfig{
			OutputPath:     "telegram_report2.pdf",
			RankCutoff:     3,
			WrapWidth:      110,
			MediaTimeout:   10 * time.Second,
			MediaMaxSize:   10 << 20,
			MediaMaxPixels: 40_000_000,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 0 9 * * *",
			CacheTTL: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from .env, an optional JSON file and
// environment variables, in that order of precedence (environment wins).
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) error {
	var invalid []string

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				invalid = append(invalid, key)
				return
			}
			*dst = n
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				invalid = append(invalid, key)
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				invalid = append(invalid, key)
				return
			}
			*dst = d
		}
	}

	setString("SERVER_HOST", &config.Server.Host)
	setInt("SERVER_PORT", &config.Server.Port)

	setString("DATABASE_URL", &config.Database.URL)

	setString("API_URL", &config.Trigger.URL)
	setString("API_AUTH_KEY", &config.Trigger.AuthKey)
	setString("API_SUBREDDIT", &config.Trigger.Subreddit)
	setInt("API_TOP", &config.Trigger.Top)
	setDuration("API_TIMEOUT", &config.Trigger.Timeout)

	setString("REPORT_OUTPUT_PATH", &config.Report.OutputPath)
	setInt("REPORT_RANK_CUTOFF", &config.Report.RankCutoff)
	setInt("REPORT_WRAP_WIDTH", &config.Report.WrapWidth)
	setDuration("REPORT_MEDIA_TIMEOUT", &config.Report.MediaTimeout)
	setInt64("REPORT_MEDIA_MAX_SIZE", &config.Report.MediaMaxSize)
	setInt64("REPORT_MEDIA_MAX_PIXELS", &config.Report.MediaMaxPixels)
	setString("REPORT_FONT_FILE", &config.Report.FontFile)
	if v := os.Getenv("REPORT_EXTRA_FORMATS"); v != "" {
		config.Report.ExtraFormats = nil
		for _, f := range strings.Split(v, ",") {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				config.Report.ExtraFormats = append(config.Report.ExtraFormats, f)
			}
		}
	}

	setString("REPORT_SCHEDULE", &config.Schedule.Cron)
	setDuration("REPORT_MEDIA_CACHE_TTL", &config.Schedule.CacheTTL)

	setString("LOG_LEVEL", &config.Logging.Level)

	if len(invalid) > 0 {
		return &ConfigurationError{Invalid: invalid}
	}
	return nil
}

// Validate checks required settings once at startup. The trigger settings are
// only required when the trigger is going to be called.
func (c *Config) Validate(requireTrigger bool) error {
	cfgErr := &ConfigurationError{}

	if c.Database.URL == "" {
		cfgErr.Missing = append(cfgErr.Missing, "DATABASE_URL")
	}
	if requireTrigger {
		if c.Trigger.URL == "" {
			cfgErr.Missing = append(cfgErr.Missing, "API_URL")
		}
		if c.Trigger.AuthKey == "" {
			cfgErr.Missing = append(cfgErr.Missing, "API_AUTH_KEY")
		}
	}

	if c.Report.OutputPath == "" {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_OUTPUT_PATH")
	}
	if c.Report.RankCutoff <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_RANK_CUTOFF")
	}
	if c.Report.WrapWidth <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_WRAP_WIDTH")
	}
	if c.Report.MediaTimeout <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_MEDIA_TIMEOUT")
	}
	if c.Report.MediaMaxSize <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_MEDIA_MAX_SIZE")
	}
	if c.Report.MediaMaxPixels <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_MEDIA_MAX_PIXELS")
	}
	for _, f := range c.Report.ExtraFormats {
		if f != "csv" && f != "xlsx" {
			cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_EXTRA_FORMATS")
			break
		}
	}

	if err := ValidateCronExpression(c.Schedule.Cron); err != nil {
		cfgErr.Invalid = append(cfgErr.Invalid, "REPORT_SCHEDULE")
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return cfgErr
	}
	return nil
}

// ValidateCronExpression validates a cron expression with a seconds field,
// as the worker's scheduler reads it.
func ValidateCronExpression(expr string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(expr)
	return err
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewLogger builds a zap logger for the configured level. Debug uses the
// development encoder.
func (c LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, &ConfigurationError{Invalid: []string{"LOG_LEVEL"}}
	}

	zcfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
