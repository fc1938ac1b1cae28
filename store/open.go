// Package store selects and opens the configured employee store.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
	memstore "github.com/warp/cert-tracker/certification/store"
	"github.com/warp/cert-tracker/config"
	"github.com/warp/cert-tracker/store/postgres"
	"github.com/warp/cert-tracker/store/sqlite"
)

// Store is a transactional employee store that can also be wiped.
type Store interface {
	certification.TxStore
	Reset(ctx context.Context) error
}

// Open returns the store for cfg.Driver and a func that releases it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.DBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("failed to close sqlite store", zap.Error(err))
			}
		}, nil

	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return s, s.Close, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memstore.NewMemory(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
