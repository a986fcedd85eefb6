package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portfolio/backend/internal/config"
)

// NewPool は PostgreSQL 接続プールを生成する
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Open は STORE_BACKEND に応じたリポジトリを返す。none の場合は nil を返す。
// cleanup は接続を解放する（nil にはならない）
func Open(ctx context.Context, cfg config.Store) (repo MessageRepository, cleanup func(), err error) {
	noop := func() {}
	switch cfg.Backend {
	case config.StoreNone:
		return nil, noop, nil
	case config.StoreFile, "":
		r, err := NewFileMessageRepository(cfg.MessagesFile)
		if err != nil {
			return nil, noop, err
		}
		return r, noop, nil
	case config.StorePostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("repository: connect postgres: %w", err)
		}
		return NewPgMessageRepository(pool), pool.Close, nil
	case config.StoreRedis:
		r, err := NewRedisMessageRepository(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("repository: connect redis: %w", err)
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("repository: unknown store backend %q", cfg.Backend)
	}
}
