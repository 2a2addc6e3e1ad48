// Package config loads server configuration from flags, environment
// variables and optional .env files.
//
// Precedence (highest first): command-line flag, BOOKIFY_* environment
// variable, .env.local / .env file, built-in default. Keys use kebab-case
// ("db-path"); the matching environment variable is BOOKIFY_DB_PATH.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "bookify"

// Config holds everything the server needs at start-up.
type Config struct {
	Port          int
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	FrontendURL   string
	ResetLinkBase string
	SweepSchedule string

	GoogleBooks GoogleBooksConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	Notify      NotifyConfig
}

type GoogleBooksConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level  string
	Format string
}

type NotifyConfig struct {
	Async   bool
	Workers int
}

// defaults are registered on every viper instance passed to Configure.
var defaults = map[string]any{
	"port":                 8080,
	"db-path":              "data/bookifyme.db",
	"jwt-secret":           "",
	"token-ttl":            time.Hour,
	"reset-token-ttl":      time.Hour,
	"frontend-url":         "http://localhost:3000",
	"reset-link-base":      "http://localhost:5500/#reset-password",
	"sweep-schedule":       "0 * * * *",
	"google-books-url":     "https://www.googleapis.com/books/v1/volumes",
	"google-books-key":     "",
	"google-books-timeout": 10 * time.Second,
	"google-books-rps":     5.0,
	"rate-limit-rps":       20.0,
	"rate-limit-burst":     40,
	"log-level":            "info",
	"log-format":           "text",
	"notify-async":         false,
	"notify-workers":       2,
}

// LoadEnvFiles reads .env and .env.local into the process environment.
// Missing files are not an error.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Configure wires env lookup and defaults into v.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads .env files, configures the global viper instance and returns
// the validated configuration.
func Load() (*Config, error) {
	LoadEnvFiles()
	Configure(viper.GetViper())
	return FromViper(viper.GetViper())
}

// FromViper builds a Config from an already configured viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:          v.GetInt("port"),
		DBPath:        v.GetString("db-path"),
		JWTSecret:     v.GetString("jwt-secret"),
		TokenTTL:      v.GetDuration("token-ttl"),
		ResetTokenTTL: v.GetDuration("reset-token-ttl"),
		FrontendURL:   v.GetString("frontend-url"),
		ResetLinkBase: v.GetString("reset-link-base"),
		SweepSchedule: v.GetString("sweep-schedule"),
		GoogleBooks: GoogleBooksConfig{
			BaseURL: strings.TrimRight(v.GetString("google-books-url"), "/"),
			APIKey:  v.GetString("google-books-key"),
			Timeout: v.GetDuration("google-books-timeout"),
			RPS:     v.GetFloat64("google-books-rps"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("rate-limit-rps"),
			Burst: v.GetInt("rate-limit-burst"),
		},
		Log: LogConfig{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
		},
		Notify: NotifyConfig{
			Async:   v.GetBool("notify-async"),
			Workers: v.GetInt("notify-workers"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: jwt-secret must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("config: db-path must not be empty")
	}
	if c.TokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.GoogleBooks.Timeout <= 0 {
		return errors.New("config: google-books-timeout must be positive")
	}
	if c.Notify.Async && c.Notify.Workers <= 0 {
		return errors.New("config: notify-workers must be positive when notify-async is set")
	}
	return nil
}
