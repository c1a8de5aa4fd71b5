// internal/db/postgres.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PostgresDB holds the two handles onto the same database: the pgx pool used by
// the read model and the database/sql handle used by transactional writes.
type PostgresDB struct {
	Pool *pgxpool.Pool
	DB   *sqlx.DB
	log  *zap.SugaredLogger
}

func NewPostgresDB(ctx context.Context, databaseURL string, log *zap.SugaredLogger) (*PostgresDB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open sql DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infow("Connected to PostgreSQL", "max_conns", config.MaxConns)
	return &PostgresDB{Pool: pool, DB: sqlDB, log: log}, nil
}

// Ping checks both handles.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return err
	}
	return db.DB.PingContext(ctx)
}

func (db *PostgresDB) Close() {
	if db.DB != nil {
		_ = db.DB.Close()
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	db.log.Info("PostgreSQL connections closed")
}
