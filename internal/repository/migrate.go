package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/portfolio/backend/internal/repository/migrations"
)

// ErrMigrationFailed wraps any goose failure.
var ErrMigrationFailed = errors.New("repository: failed to apply migrations")

const migrationsTable = "schema_migrations"

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return runGoose(ctx, pool, log, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, ".")
	})
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return runGoose(ctx, pool, log, func(db *sql.DB) error {
		return goose.DownContext(ctx, db, ".")
	})
}

// MigrationStatus logs whether each migration is applied.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return runGoose(ctx, pool, log, func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, ".")
	})
}

// runGoose bridges the pool to database/sql, which goose requires.
func runGoose(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger, fn func(*sql.DB) error) error {
	if log == nil {
		log = slog.Default()
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{log: log})
	goose.SetTableName(migrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := fn(db); err != nil {
		return errors.Join(ErrMigrationFailed, fmt.Errorf("goose: %w", err))
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}
