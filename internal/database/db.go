package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/config"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// New opens the configured backend and returns a Bun DB handle.
// The driver is selected by cfg.DBDriver: "postgres" or "sqlite".
func New(cfg *config.Config) (*bun.DB, error) {
	var db *bun.DB

	switch cfg.DBDriver {
	case "postgres":
		connector := pgdriver.NewConnector(
			pgdriver.WithDSN(cfg.DatabaseURL),
			pgdriver.WithTimeout(120*time.Second),
			pgdriver.WithDialTimeout(15*time.Second),
			pgdriver.WithReadTimeout(120*time.Second),
			pgdriver.WithWriteTimeout(30*time.Second),
		)
		sqldb := sql.OpenDB(connector)
		sqldb.SetMaxOpenConns(25)
		sqldb.SetMaxIdleConns(10)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		sqldb.SetConnMaxIdleTime(10 * time.Minute)
		db = bun.NewDB(sqldb, pgdialect.New())

	case "sqlite":
		if err := ensureSQLiteDir(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// SQLite handles one writer at a time; a single connection avoids
		// SQLITE_BUSY under concurrent API writes.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}

	// Optional query logging
	if cfg.BunDebug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	if err := InitSchema(ctx, db); err != nil {
		return nil, err
	}

	return db, nil
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN so
// a fresh checkout can start without manual setup. In-memory DSNs pass
// through untouched.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// InitSchema creates the regions table if it does not exist. The
// self-referential foreign key on parent_id carries ON DELETE CASCADE so the
// store engine removes descendants when a region is deleted.
func InitSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*models.Region)(nil)).
		IfNotExists().
		ForeignKey(`("parent_id") REFERENCES "regions" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create regions table: %w", err)
	}
	return nil
}
