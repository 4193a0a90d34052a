package repository

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/UnknownOlympus/cartograph/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDatabase opens a connection pool and verifies it with a ping.
func NewDatabase(host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, port),
		Path:   name,
	}

	return NewDatabaseFromDSN(context.Background(), dsn.String())
}

// NewDatabaseFromDSN opens a connection pool for a connection string.
func NewDatabaseFromDSN(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the results table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS geocode_results (
			id         BIGSERIAL PRIMARY KEY,
			address    TEXT NOT NULL,
			latitude   DOUBLE PRECISION,
			longitude  DOUBLE PRECISION,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create geocode_results table: %w", err)
	}

	return nil
}

// SaveResult inserts one result. Latitude and longitude are NULL for failed lookups.
func (r *Repository) SaveResult(ctx context.Context, result models.Result) error {
	query := `
		INSERT INTO geocode_results (address, latitude, longitude, status)
		VALUES ($1, $2, $3, $4);
	`

	var lat, lon *float64
	if result.Coordinates != nil {
		lat, lon = &result.Coordinates.Latitude, &result.Coordinates.Longitude
	}

	if _, err := r.db.Exec(ctx, query, result.Address, lat, lon, string(result.Status)); err != nil {
		return fmt.Errorf("failed to insert geocode result: %w", err)
	}

	r.log.DebugContext(ctx, "Result stored in database", "address", result.Address, "status", result.Status)

	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close releases the database connection.
func (r *Repository) Close() {
	r.db.Close()
}
