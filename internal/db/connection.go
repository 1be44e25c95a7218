package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewConnection opens a Postgres-backed bun.DB from the configured DSN and
// verifies it with a ping.
func NewConnection(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	if cfg.DB == nil || cfg.DB.DSN == "" {
		return nil, fmt.Errorf("db dsn is not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DB.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
