package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	Configure(v)
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("BOOKIFY_JWT_SECRET", "test-secret-at-least-16-chars!!")
	v := newTestViper(t)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/bookifyme.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "https://www.googleapis.com/books/v1/volumes", cfg.GoogleBooks.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.GoogleBooks.Timeout)
	assert.Equal(t, "0 * * * *", cfg.SweepSchedule)
	assert.False(t, cfg.Notify.Async)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("BOOKIFY_JWT_SECRET", "test-secret-at-least-16-chars!!")
	t.Setenv("BOOKIFY_PORT", "9090")
	t.Setenv("BOOKIFY_DB_PATH", ":memory:")
	t.Setenv("BOOKIFY_TOKEN_TTL", "30m")
	t.Setenv("BOOKIFY_GOOGLE_BOOKS_URL", "http://books.local/volumes/")
	t.Setenv("BOOKIFY_LOG_FORMAT", "json")

	cfg, err := FromViper(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "http://books.local/volumes", cfg.GoogleBooks.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromViper_RejectsShortSecret(t *testing.T) {
	t.Setenv("BOOKIFY_JWT_SECRET", "short")

	_, err := FromViper(newTestViper(t))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:          8080,
			DBPath:        ":memory:",
			JWTSecret:     "test-secret-at-least-16-chars!!",
			TokenTTL:      time.Hour,
			ResetTokenTTL: time.Hour,
			GoogleBooks:   GoogleBooksConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero port", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "empty db path", mutate: func(c *Config) { c.DBPath = "" }, wantErr: true},
		{name: "negative token ttl", mutate: func(c *Config) { c.TokenTTL = -time.Second }, wantErr: true},
		{name: "zero provider timeout", mutate: func(c *Config) { c.GoogleBooks.Timeout = 0 }, wantErr: true},
		{name: "async without workers", mutate: func(c *Config) { c.Notify.Async = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
