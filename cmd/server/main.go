// Package main is the entry point for the BookifyMe API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package is kept minimal. Its job is to:
// 1. Parse the command line
// 2. Load configuration
// 3. Hand over to the di container, which builds and starts everything
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
//
// SUBCOMMANDS:
//
//	bookifyme serve             run the HTTP server (the default)
//	bookifyme migrate           apply the schema and exit
//	bookifyme reset-db --yes    drop every table and recreate the schema
//
// Every flag can also be set through a BOOKIFY_* environment variable or a
// .env file; see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/bookifyme/internal/config"
	"github.com/sakif/bookifyme/internal/di"
	"github.com/sakif/bookifyme/internal/logger"
	"github.com/sakif/bookifyme/internal/repository/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "bookifyme",
	Short: "BookifyMe book tracking API",
	Long: `BookifyMe keeps a personal bookshelf (reading, want to read, finished),
searches Google Books, computes reading statistics and hosts reading groups.`,
	SilenceUsage: true,
	// Flags are bound here, not in init, so that viper sees the values
	// cobra parsed for whichever subcommand runs.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath()
		db, err := sqlite.New(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", path)
		return nil
	},
}

var resetDBCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Drop every table and recreate the schema (all data is lost)",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("refusing to reset the database without --yes")
		}

		path := dbPath()
		db, err := sqlite.New(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s reset\n", path)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Int("port", 8080, "HTTP port")
	flags.String("db-path", "data/bookifyme.db", "SQLite database file")
	flags.String("jwt-secret", "", "secret for signing bearer tokens (at least 16 characters)")
	flags.Duration("token-ttl", 0, "bearer token lifetime")
	flags.String("frontend-url", "", "allowed CORS origins, comma-separated")
	flags.String("google-books-key", "", "Google Books API key (optional)")
	flags.Float64("rate-limit-rps", 0, "requests per second per client IP (0 disables)")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "text or json")
	flags.Bool("notify-async", false, "deliver password-reset notifications through the task queue")

	resetDBCmd.Flags().Bool("yes", false, "confirm that all data will be lost")

	rootCmd.AddCommand(serveCmd, migrateCmd, resetDBCmd)
}

// dbPath resolves only the database location. The schema commands do not
// need a jwt-secret, so they skip full validation.
func dbPath() string {
	config.LoadEnvFiles()
	config.Configure(viper.GetViper())
	return viper.GetString("db-path")
}

// runServe loads the configuration, bootstraps the container and blocks
// until the server shuts down.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, nil)

	injector := di.NewContainer(cfg)
	srv, err := di.Bootstrap(context.Background(), injector)
	if err != nil {
		log.Error("failed to start", slog.String("error", err.Error()))
		return err
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
