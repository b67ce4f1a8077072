package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// connectTimeout bounds the initial pool creation and ping.
const connectTimeout = 10 * time.Second

// PoolSettings sizes the membership store's connection pool. Zero values
// fall back to pgx defaults.
type PoolSettings struct {
	MaxConns int
	MinConns int
}

// PostgresDB owns the pgx pool shared by the membership repositories.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// NewPostgresDB parses the connection URL, applies the pool settings and
// verifies the database answers before handing the pool out.
func NewPostgresDB(databaseURL string, settings PoolSettings) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if settings.MaxConns > 0 {
		poolCfg.MaxConns = int32(settings.MaxConns)
	}
	if settings.MinConns > 0 {
		poolCfg.MinConns = int32(settings.MinConns)
	}
	// Membership traffic is bursty around invites; recycle idle
	// connections instead of holding the peak.
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[DB] ✅ Connected to PostgreSQL (pool %d-%d conns)", poolCfg.MinConns, poolCfg.MaxConns)
	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("[DB] PostgreSQL connection closed")
	}
}
