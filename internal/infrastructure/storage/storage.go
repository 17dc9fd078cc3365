// Package storage opens the user store selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/config"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/repository"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/postgres"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/sqlite"
)

// Store is an opened user repository and the handle that releases it.
type Store struct {
	Users repository.UserRepository
	close func()
}

func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Open migrates and connects the configured driver.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		dsn := cfg.PostgresDSN()
		if err := postgres.Migrate(dsn, logger); err != nil {
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		logger.WithField("host", cfg.DBHost).Info("postgres ready")
		return &Store{Users: postgres.NewUserRepository(pool), close: pool.Close}, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		path := cfg.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		logger.WithField("path", path).Info("sqlite ready")
		return &Store{Users: sqlite.NewUserRepository(db), close: func() { _ = db.Close() }}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
