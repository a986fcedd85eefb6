package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/portfolio/backend/internal/logging"
	"github.com/portfolio/backend/internal/repository"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [command]

Commands:
  up (default)   未適用のマイグレーションを適用
  down           直近のマイグレーションを 1 件戻す
  status         各マイグレーションの適用状況を表示`)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var run func(context.Context, *slog.Logger) error
	switch cmd {
	case "up":
		run = withPool(cfg.DatabaseURL, repository.Migrate)
	case "down":
		run = withPool(cfg.DatabaseURL, repository.Rollback)
	case "status":
		run = withPool(cfg.DatabaseURL, repository.MigrationStatus)
	default:
		usage()
	}

	if err := run(context.Background(), slog.Default()); err != nil {
		logging.Fatal("migrate failed", "command", cmd, "error", err)
	}
	slog.Info("migrate finished", "command", cmd)
}

func withPool(dbURL string, fn func(context.Context, *pgxpool.Pool, *slog.Logger) error) func(context.Context, *slog.Logger) error {
	return func(ctx context.Context, log *slog.Logger) error {
		pool, err := repository.NewPool(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		return fn(ctx, pool, log)
	}
}
