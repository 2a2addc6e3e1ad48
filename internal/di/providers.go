package di

import (
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/sakif/bookifyme/internal/auth"
	"github.com/sakif/bookifyme/internal/config"
	"github.com/sakif/bookifyme/internal/handler"
	"github.com/sakif/bookifyme/internal/logger"
	"github.com/sakif/bookifyme/internal/middleware"
	"github.com/sakif/bookifyme/internal/notify"
	"github.com/sakif/bookifyme/internal/provider/googlebooks"
	"github.com/sakif/bookifyme/internal/repository/sqlite"
	"github.com/sakif/bookifyme/internal/scheduler"
	"github.com/sakif/bookifyme/internal/server"
	"github.com/sakif/bookifyme/internal/service"
	"github.com/sakif/bookifyme/internal/validation"
)

// ProvideLogger builds the process logger from the log settings.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.New(cfg.Log.Level, cfg.Log.Format, nil), nil
}

// ProvideDB opens the store and applies the schema.
func ProvideDB(i do.Injector) (*sqlite.DB, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info("database opened", slog.String("path", cfg.DBPath))
	return db, nil
}

// ProvideBookProvider builds the Google Books client.
func ProvideBookProvider(i do.Injector) (service.BookProvider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	return googlebooks.NewClient(googlebooks.Config{
		BaseURL: cfg.GoogleBooks.BaseURL,
		APIKey:  cfg.GoogleBooks.APIKey,
		Timeout: cfg.GoogleBooks.Timeout,
		RPS:     cfg.GoogleBooks.RPS,
	}, log.With(slog.String("component", "googlebooks"))), nil
}

// ProvideSink returns the password-reset sink. With notify-async it is a
// backlite queue in front of the log sink. An in-memory store has no file to
// put the task database next to, so it always gets the plain log sink.
func ProvideSink(i do.Injector) (notify.Sink, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	sink := notify.NewLogSink(log, cfg.ResetLinkBase)
	if !cfg.Notify.Async {
		return sink, nil
	}
	if cfg.DBPath == sqlite.MemoryPath {
		log.Warn("notify-async ignored for an in-memory database")
		return sink, nil
	}

	qcfg := notify.DefaultQueueConfig()
	qcfg.Workers = cfg.Notify.Workers
	queue, err := notify.NewQueue(cfg.DBPath, qcfg, sink, log)
	if err != nil {
		return nil, fmt.Errorf("di: task queue: %w", err)
	}
	return queue, nil
}

func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
}

func ProvidePasswordService(i do.Injector) (*auth.PasswordService, error) {
	return auth.NewPasswordService(), nil
}

func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return service.NewAuthService(
		do.MustInvoke[*sqlite.DB](i),
		do.MustInvoke[*auth.TokenService](i),
		do.MustInvoke[*auth.PasswordService](i),
		do.MustInvoke[notify.Sink](i),
		cfg.ResetTokenTTL,
		do.MustInvoke[*slog.Logger](i),
	), nil
}

func ProvideBookService(i do.Injector) (*service.BookService, error) {
	return service.NewBookService(
		do.MustInvoke[*sqlite.DB](i),
		do.MustInvoke[service.BookProvider](i),
		do.MustInvoke[*validation.Validator](i),
		do.MustInvoke[*slog.Logger](i),
	), nil
}

func ProvideBookshelfService(i do.Injector) (*service.BookshelfService, error) {
	return service.NewBookshelfService(
		do.MustInvoke[*sqlite.DB](i),
		do.MustInvoke[*service.BookService](i),
		do.MustInvoke[*slog.Logger](i),
	), nil
}

func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	return service.NewStatsService(do.MustInvoke[*sqlite.DB](i)), nil
}

func ProvideCommunityService(i do.Injector) (*service.CommunityService, error) {
	return service.NewCommunityService(
		do.MustInvoke[*sqlite.DB](i),
		do.MustInvoke[*slog.Logger](i),
	), nil
}

// ProvideSweeper builds the reset-token sweeper. It is started by Bootstrap.
func ProvideSweeper(i do.Injector) (*scheduler.ResetTokenSweeper, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return scheduler.NewResetTokenSweeper(
		do.MustInvoke[*service.AuthService](i),
		cfg.SweepSchedule,
		do.MustInvoke[*slog.Logger](i),
	), nil
}

// ProvideRateLimiter returns nil when rate-limit-rps is zero or negative.
func ProvideRateLimiter(i do.Injector) (*middleware.RateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.RateLimit.RPS <= 0 {
		return nil, nil
	}
	return middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, do.MustInvoke[*slog.Logger](i)), nil
}

// ProvideServer builds every handler and the router.
func ProvideServer(i do.Injector) (*server.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	authSvc := do.MustInvoke[*service.AuthService](i)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(do.MustInvoke[*sqlite.DB](i), log),
		Auth:   handler.NewAuthHandler(authSvc, log),
		Books:  handler.NewBookHandler(do.MustInvoke[*service.BookService](i), log),
		Bookshelf: handler.NewBookshelfHandler(
			do.MustInvoke[*service.BookshelfService](i),
			do.MustInvoke[*service.StatsService](i),
			log,
		),
		Community: handler.NewCommunityHandler(do.MustInvoke[*service.CommunityService](i), log),
	}

	return server.New(
		server.Config{Port: cfg.Port, FrontendURL: cfg.FrontendURL},
		handlers,
		authSvc,
		do.MustInvoke[*middleware.RateLimiter](i),
		log,
	), nil
}
