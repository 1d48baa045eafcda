package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/garrettladley/whoopsync/internal/bootstrap"
	"github.com/garrettladley/whoopsync/internal/config"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

// databaseURLEnv points the CLI at the server's Postgres database, so
// `whoopsync auth` can seed the token the server syncs with.
const databaseURLEnv = "DATABASE_URL"

type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *bootstrap.Store
}

func (s *session) Close() { s.store.Close() }

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	logger := xslog.New(os.Stderr, cfg.LogLevel, xslog.FormatText)

	store, err := bootstrap.OpenStore(ctx, os.Getenv(databaseURLEnv), cfg.SQLitePath, logger)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, store: store}, nil
}
