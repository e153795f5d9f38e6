package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/alerts"
	"github.com/spf13/viper"
)

// Config holds all Financial Alarm configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Categories CategoriesConfig `mapstructure:"categories"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Defaults   DefaultsConfig   `mapstructure:"defaults"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig defines evaluation pass settings.
type EngineConfig struct {
	PassTimeout string `mapstructure:"pass_timeout"`
	Parallelism int    `mapstructure:"parallelism"`
}

// Timeout returns the parsed pass timeout, falling back to 30s when unset or invalid.
func (c EngineConfig) Timeout() time.Duration {
	return parseDuration(c.PassTimeout, 30*time.Second)
}

// CategoriesConfig points at an optional category keyword table.
type CategoriesConfig struct {
	File string `mapstructure:"file"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// Notifiers builds the enabled notifiers.
func (c AlertsConfig) Notifiers() []alerts.Notifier {
	var notifiers []alerts.Notifier
	if c.Slack.Enabled {
		notifiers = append(notifiers, alerts.NewSlackNotifier(c.Slack.WebhookURL, c.Slack.Channel))
	}
	if c.Webhook.Enabled {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(c.Webhook.URL, c.Webhook.Secret))
	}
	return notifiers
}

// ServerConfig defines the HTTP trigger server.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// Timeouts returns the parsed read and write timeouts.
func (c ServerConfig) Timeouts() (read, write time.Duration) {
	return parseDuration(c.ReadTimeout, 15*time.Second), parseDuration(c.WriteTimeout, 30*time.Second)
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger builds a slog logger writing to w.
func (c LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// DefaultsConfig defines default values.
type DefaultsConfig struct {
	UserID   string `mapstructure:"user_id"`
	Currency string `mapstructure:"currency"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".falarm"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".falarm", "alarm.db"))
	v.SetDefault("engine.pass_timeout", "30s")
	v.SetDefault("engine.parallelism", 4)
	v.SetDefault("categories.file", "")
	v.SetDefault("alerts.slack.enabled", false)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#finance-alerts")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("defaults.user_id", "default")
	v.SetDefault("defaults.currency", "ZAR")

	// Environment variables
	v.SetEnvPrefix("FALARM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
