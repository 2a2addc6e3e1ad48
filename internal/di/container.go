// Package di wires every component of the server with samber/do.
//
// Providers are lazy: nothing is built until Bootstrap (or a test) invokes
// the server, which pulls in the whole graph. Tests replace a single
// component with do.OverrideValue before bootstrapping, e.g. a fake book
// provider instead of the Google Books client.
package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/sakif/bookifyme/internal/config"
	"github.com/sakif/bookifyme/internal/middleware"
	"github.com/sakif/bookifyme/internal/notify"
	"github.com/sakif/bookifyme/internal/repository/sqlite"
	"github.com/sakif/bookifyme/internal/scheduler"
	"github.com/sakif/bookifyme/internal/server"
)

// NewContainer creates the container. cfg is provided as a value because
// it is loaded by the command before anything else exists.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, ProvideLogger)
	do.Provide(injector, ProvideDB)

	// Adapters
	do.Provide(injector, ProvideBookProvider)
	do.Provide(injector, ProvideSink)

	// Auth
	do.Provide(injector, ProvideTokenService)
	do.Provide(injector, ProvidePasswordService)
	do.Provide(injector, ProvideValidator)

	// Business services
	do.Provide(injector, ProvideAuthService)
	do.Provide(injector, ProvideBookService)
	do.Provide(injector, ProvideBookshelfService)
	do.Provide(injector, ProvideStatsService)
	do.Provide(injector, ProvideCommunityService)

	// Background jobs
	do.Provide(injector, ProvideSweeper)

	// HTTP
	do.Provide(injector, ProvideRateLimiter)
	do.Provide(injector, ProvideServer)

	return injector
}

// Bootstrap builds the server, starts the background jobs and registers
// their cleanup with the server. The returned server is ready for Start.
//
// Cleanups run in reverse order of registration, so on shutdown the sweeper
// and the task queue stop before the database they use is closed.
func Bootstrap(ctx context.Context, injector do.Injector) (*server.Server, error) {
	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		return nil, fmt.Errorf("di: building server: %w", err)
	}
	log := do.MustInvoke[*slog.Logger](injector)
	db := do.MustInvoke[*sqlite.DB](injector)

	srv.OnShutdown(func(context.Context) error {
		log.Info("closing database")
		return db.Close()
	})

	if sink := do.MustInvoke[notify.Sink](injector); sink != nil {
		if queue, ok := sink.(*notify.Queue); ok {
			queue.Start(ctx)
			srv.OnShutdown(func(ctx context.Context) error {
				queue.Stop(ctx)
				return queue.Close()
			})
		}
	}

	if limiter := do.MustInvoke[*middleware.RateLimiter](injector); limiter != nil {
		srv.OnShutdown(func(context.Context) error {
			limiter.Stop()
			return nil
		})
	}

	sweeper := do.MustInvoke[*scheduler.ResetTokenSweeper](injector)
	if err := sweeper.Start(); err != nil {
		_ = srv.Close()
		return nil, err
	}
	srv.OnShutdown(func(context.Context) error {
		sweeper.Stop()
		return nil
	})

	return srv, nil
}
