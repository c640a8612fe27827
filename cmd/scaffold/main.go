// Command scaffold serves the category and product resources over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-rest-scaffold/config"
	"github.com/goliatone/go-rest-scaffold/internal/logging"
	"github.com/goliatone/go-rest-scaffold/pkg/di"
	"github.com/goliatone/go-rest-scaffold/server"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "scaffold:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("scaffold", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file (defaults to $"+config.EnvPath+")")
	skipMigrate := flags.Bool("skip-migrate", false, "do not create missing tables on start")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, stdout)
	if err != nil {
		return err
	}
	defer logger.Close()

	a, err := newApp(ctx, cfg, logger.Logger, !*skipMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.server.Run(ctx)
}

type app struct {
	db        *bun.DB
	container *di.Container
	server    *server.Server
}

// newApp opens the database, builds the shared container and mounts the
// resources under /api.
func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, runMigrations bool) (*app, error) {
	db, err := openDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	if runMigrations {
		if err := migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	container, err := di.FromConfig(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	srv := server.New(cfg.Server, logger)
	api := srv.Group("/api")

	di.Mount(container, api.Group("/categories"),
		repository.NewRepository[*Category](db, categoryHandlers()),
		"category", newCategory, nil)

	di.Mount(container, api.Group("/products"),
		repository.NewRepository[*Product](db, productHandlers()),
		"product", newProduct, productTransformer())

	logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("cache", cfg.Cache.Backend).
		Msg("resources mounted")

	return &app{db: db, container: container, server: srv}, nil
}

func (a *app) Close() error {
	cacheErr := a.container.Close()
	if err := a.db.Close(); err != nil {
		return err
	}
	return cacheErr
}
