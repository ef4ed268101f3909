package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals
var gooseMu sync.Mutex

// MigrationsFS returns the embedded schema migrations
func MigrationsFS() fs.FS {
	return migrationsFS
}

// Migrate applies every pending migration to db
func Migrate(ctx context.Context, db *bun.DB) error {
	gooseDialect, err := gooseDialectFor(db)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("persistence: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("persistence: apply migrations: %w", err)
	}
	return nil
}

func gooseDialectFor(db *bun.DB) (string, error) {
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return "sqlite3", nil
	case dialect.PG:
		return "postgres", nil
	default:
		return "", fmt.Errorf("persistence: no migrations for dialect %s", db.Dialect().Name())
	}
}
