// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medsearch-service/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient owns the pool backing the history table.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool and pings it. The ledger writes one row per
// search, so the pool stays small unless configured otherwise.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxConnections, cfg.MaxIdle
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen / 2
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := verify(ctx, "postgres", db.PingContext, db.Close); err != nil {
		return nil, err
	}
	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	return c.DB.Close()
}
