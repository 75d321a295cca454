// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	DBURL          string `mapstructure:"DB_URL"`
	BotToken       string `mapstructure:"BOT_TOKEN"`
	WebhookSecret  string `mapstructure:"WEBHOOK_SECRET"`
	ListenAddr     string `mapstructure:"LISTEN_ADDR"`
	GithubToken    string `mapstructure:"GITHUB_TOKEN"`
	ReportSchedule string `mapstructure:"REPORT_SCHEDULE"`
	ReportTimezone string `mapstructure:"REPORT_TIMEZONE"`

	ReportLocation *time.Location `mapstructure:"-"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":3000")
	viper.SetDefault("REPORT_SCHEDULE", "0 8 * * 1")
	viper.SetDefault("REPORT_TIMEZONE", "Europe/Moscow")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables. AutomaticEnv alone does not surface
	// env-only keys to Unmarshal; each key has to be bound explicitly.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{
		"LOG_LEVEL", "DB_URL", "BOT_TOKEN", "WEBHOOK_SECRET",
		"LISTEN_ADDR", "GITHUB_TOKEN", "REPORT_SCHEDULE", "REPORT_TIMEZONE",
	} {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return nil, errors.New("REPORT_TIMEZONE must be a valid IANA timezone name (e.g. Europe/Moscow)")
	}
	cfg.ReportLocation = loc

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is a required configuration field")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("WEBHOOK_SECRET is a required configuration field")
	}

	return &cfg, nil
}
