package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/goliatone/go-rest-scaffold/config"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// openDB opens the configured database and wraps it with the matching
// bun dialect.
func openDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	var (
		driverName string
		dialect    schema.Dialect
	)

	switch cfg.Driver {
	case config.DriverMySQL:
		driverName, dialect = "mysql", mysqldialect.New()
	case config.DriverPostgres:
		driverName, dialect = "postgres", pgdialect.New()
	case config.DriverSQLite:
		driverName, dialect = "sqlite3", sqlitedialect.New()
	default:
		return nil, &config.ConfigError{Field: "database.driver", Message: "unsupported driver " + cfg.Driver}
	}

	sqldb, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// one connection keeps in memory databases and PRAGMAs consistent
		sqldb.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return bun.NewDB(sqldb, dialect), nil
}

// migrate creates the demo tables when they do not exist.
func migrate(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*Category)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create categories: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*Product)(nil)).
		IfNotExists().
		ForeignKey("(?) REFERENCES ? (?) ON DELETE RESTRICT",
			bun.Ident("category_id"), bun.Ident("categories"), bun.Ident("id")).
		Exec(ctx); err != nil {
		return fmt.Errorf("create products: %w", err)
	}

	return nil
}
