package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/health-attestation-server/internal/database"
	"github.com/health-attestation-server/internal/domain"
)

// Open builds the SubmissionStore selected by cfg.Store.Backend. dsn is the
// PostgreSQL URL and is only used by the postgres backend, which applies
// pending migrations before serving.
func Open(ctx context.Context, cfg *domain.Config, dsn string, logger *logrus.Logger) (domain.SubmissionStore, error) {
	switch cfg.Store.Backend {
	case domain.StoreBackendMemory, "":
		return NewMemoryStore(), nil
	case domain.StoreBackendSQLite:
		return NewSQLiteStore(cfg.Store.SQLitePath)
	case domain.StoreBackendRedis:
		return NewRedisStore(ctx, cfg.Store.RedisURL, cfg.Store.KeyPrefix)
	case domain.StoreBackendPostgres:
		if err := database.Migrate(dsn, cfg.Database.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("failed to migrate submission store: %w", err)
		}
		db, err := database.NewConnection(ctx, dsn, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(db.Pool, logger)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
