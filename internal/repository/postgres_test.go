package repository_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/cartograph/internal/models"
	"github.com/UnknownOlympus/cartograph/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertResultQuery = `
		INSERT INTO geocode_results (address, latitude, longitude, status)
		VALUES ($1, $2, $3, $4);
	`

func TestSaveResult(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("success - stores coordinates", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		lat, lon := 40.7128, -74.006
		result := models.NewResult("New York", &models.Coordinates{Latitude: lat, Longitude: lon})

		mock.ExpectExec(regexp.QuoteMeta(insertResultQuery)).
			WithArgs("New York", &lat, &lon, "success").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.SaveResult(ctx, result)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - failed lookup stores nulls", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(insertResultQuery)).
			WithArgs("Nowhere", (*float64)(nil), (*float64)(nil), "fail").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.SaveResult(ctx, models.NewResult("Nowhere", nil))

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - insert fails", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(insertResultQuery)).
			WithArgs("Nowhere", (*float64)(nil), (*float64)(nil), "fail").
			WillReturnError(assert.AnError)

		err = repo.SaveResult(ctx, models.NewResult("Nowhere", nil))

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to insert geocode result")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("success - table created", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS geocode_results").
			WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

		require.NoError(t, repo.EnsureSchema(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS geocode_results").
			WillReturnError(assert.AnError)

		err = repo.EnsureSchema(ctx)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to create geocode_results table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewRepository(mock, slog.Default())

	mock.ExpectPing().WillReturnError(assert.AnError)

	require.ErrorIs(t, repo.Ping(t.Context()), assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
