//go:build integration

package repository_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/cartograph/internal/models"
	"github.com/UnknownOlympus/cartograph/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestRepository_Postgres(t *testing.T) {
	ctx := t.Context()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("cartograph"),
		postgres.WithUsername("cartograph"),
		postgres.WithPassword("cartograph"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := repository.NewDatabaseFromDSN(ctx, dsn)
	require.NoError(t, err)

	repo := repository.NewRepository(pool, slog.Default())
	defer repo.Close()

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	require.NoError(t, repo.SaveResult(ctx, models.NewResult("Kyiv", &models.Coordinates{Latitude: 50.45, Longitude: 30.52})))
	require.NoError(t, repo.SaveResult(ctx, models.NewResult("Nowhere", nil)))

	var total, failed int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM geocode_results`).Scan(&total))
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM geocode_results WHERE status = 'fail' AND latitude IS NULL`).Scan(&failed))

	assert.Equal(t, 2, total)
	assert.Equal(t, 1, failed)
}
