package store

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/health-attestation-server/internal/database"
	"github.com/health-attestation-server/internal/domain"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("attest"),
		postgres.WithUsername("attest"),
		postgres.WithPassword("attest"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	require.NoError(t, database.Migrate(dsn, "../../migrations", logger))

	db, err := database.NewConnection(ctx, dsn, domain.DatabaseConfig{MaxOpenConns: 10}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	runStoreContract(t, func(t *testing.T) domain.SubmissionStore {
		_, err := db.Pool.Exec(ctx, "TRUNCATE submissions")
		require.NoError(t, err)
		s, err := NewPostgresStore(db.Pool, logger)
		require.NoError(t, err)
		return s
	})
}

func TestNewPostgresStore_RequiresPool(t *testing.T) {
	_, err := NewPostgresStore(nil, nil)
	require.Error(t, err)
}
