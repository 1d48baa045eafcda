// Package bootstrap wires configuration into the store, the WHOOP client and
// the sync service for both entrypoints.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/config"
	"github.com/garrettladley/whoopsync/internal/db"
	"github.com/garrettladley/whoopsync/internal/migrations"
	"github.com/garrettladley/whoopsync/internal/oauth"
	"github.com/garrettladley/whoopsync/internal/paths"
	"github.com/garrettladley/whoopsync/internal/repository"
	"github.com/garrettladley/whoopsync/internal/storage"
	"github.com/garrettladley/whoopsync/internal/xslog"
	"github.com/garrettladley/whoopsync/internal/xsync"
)

const (
	keyDialect = "dialect"
	keyApplied = "applied"
)

// Store is an open database with migrations applied.
type Store struct {
	Conn    db.DBTX
	Dialect db.Dialect
	Repo    *repository.Repository
	close   func()
}

func (s *Store) Close() { s.close() }

// OpenStore uses Postgres when databaseURL is set and the local SQLite file otherwise.
func OpenStore(ctx context.Context, databaseURL string, sqlitePath string, logger *slog.Logger) (*Store, error) {
	var store Store

	if databaseURL != "" {
		pool, err := db.OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		store = Store{Conn: db.NewPostgres(pool), Dialect: db.DialectPostgres, close: pool.Close}
	} else {
		path, err := paths.DBOrDefault(sqlitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		store = Store{Conn: db.NewSQL(sqlDB), Dialect: db.DialectSQLite, close: func() { _ = sqlDB.Close() }}
	}

	applied, err := migrations.Apply(ctx, store.Conn, store.Dialect)
	if err != nil {
		store.close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.InfoContext(ctx, "applied migrations",
			slog.String(keyDialect, string(store.Dialect)),
			slog.Any(keyApplied, applied),
		)
	}

	store.Repo = repository.New(store.Conn)
	return &store, nil
}

// NewBudget shares the daily request count through Redis when redisURL is
// set, so the CLI and the server draw from one budget.
func NewBudget(ctx context.Context, redisURL string, logger *slog.Logger) (storage.Budget, func(), error) {
	if redisURL == "" {
		logger.DebugContext(ctx, "using in-process daily budget")
		return storage.NewMemoryBudget(), func() {}, nil
	}

	client, err := storage.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.InfoContext(ctx, "using redis daily budget")
	return storage.NewRedisBudget(client), func() {
		if err := client.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close redis client", xslog.Error(err))
		}
	}, nil
}

func NewTokenSource(cfg config.Config, store *Store, logger *slog.Logger) *oauth.StoreTokenSource {
	return oauth.NewStoreTokenSource(oauth.NewConfig(cfg.Whoop), store.Repo.Tokens, logger)
}

func NewWhoopClient(cfg config.Config, tokens *oauth.StoreTokenSource, budget whoop.Budget, logger *slog.Logger) *whoop.Client {
	throttle := whoop.NewThrottle(budget, whoop.ThrottleConfig{
		MinInterval:       cfg.Whoop.MinInterval,
		ThrottledInterval: cfg.Whoop.ThrottledInterval,
		DailyLimit:        cfg.Whoop.DailyLimit,
		DailySoftLimit:    cfg.Whoop.DailySoftLimit,
	}, logger)

	return whoop.New(tokens,
		whoop.WithBaseURL(cfg.Whoop.BaseURL),
		whoop.WithLogger(logger),
		whoop.WithTimeout(cfg.Whoop.Timeout),
		whoop.WithThrottle(throttle),
		whoop.WithRetry(cfg.Whoop.MaxRetries, cfg.Whoop.RetryBaseDelay),
	)
}

func SyncOptions(cfg config.Sync) xsync.Options {
	opts := xsync.DefaultOptions()
	opts.DailyWindow = cfg.DailyWindow
	opts.PageSize = cfg.PageSize
	opts.MaxPages = cfg.MaxPages
	opts.BackfillBatch = cfg.BackfillBatch
	opts.CycleConcurrency = cfg.CycleConcurrency
	opts.CycleFetchAttempts = cfg.CycleFetchAttempts
	return opts
}

// NewSyncer builds the sync service on top of an open store. The returned
// func releases the budget backend.
func NewSyncer(ctx context.Context, cfg config.Config, store *Store, logger *slog.Logger) (*xsync.Service, func(), error) {
	if err := cfg.Whoop.Validate(); err != nil {
		return nil, nil, err
	}

	budget, closeBudget, err := NewBudget(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, nil, err
	}

	client := NewWhoopClient(cfg, NewTokenSource(cfg, store, logger), budget, logger)
	return xsync.NewService(client, store.Repo, SyncOptions(cfg.Sync), logger), closeBudget, nil
}
