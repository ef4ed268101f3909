// Package persistence opens the bun database used by the auth store and
// applies its schema migrations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultPingTimeout = 5 * time.Second

// Config selects and tunes the database connection
type Config struct {
	Driver       string
	DSN          string
	Debug        bool
	PingTimeout  time.Duration
	MaxOpenConns int
}

// Open connects to the configured database and verifies it answers a ping
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "sqlite3", "":
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("persistence: open sqlite: %w", err)
		}
		if isMemoryDSN(cfg.DSN) {
			// every connection to an in-memory database is a new database
			sqldb.SetMaxOpenConns(1)
			sqldb.SetMaxIdleConns(1)
			sqldb.SetConnMaxLifetime(0)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres, "pgx", "postgresql":
		sqldb, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("persistence: open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("persistence: unsupported driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 && !isMemoryDSN(cfg.DSN) {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
