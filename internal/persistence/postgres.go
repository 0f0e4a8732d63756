// Package persistence stores solved Solutions in Postgres and manages the
// schema that backs them. Adapted closely from the teacher's
// internal/database.PostgresDB/Migrator: database/sql over lib/pq, a
// connection-pool config struct, and golang-migrate for schema evolution.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Config holds the connection parameters for the solution store.
type Config struct {
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// DefaultConfig returns sane pool sizing for a single solver instance.
func DefaultConfig() Config {
	return Config{
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		ConnMaxLife:  30 * time.Minute,
	}
}

// DB wraps a database/sql handle opened against the solution store.
type DB struct {
	SQL *sql.DB
}

// Open connects to Postgres, configures the pool, and verifies
// reachability with a bounded ping before returning.
func Open(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("persistence: ping database: %w", err)
	}

	return &DB{SQL: sqlDB}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	if db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

// Health runs a bounded round-trip query, used by the server's readiness
// endpoint.
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("persistence: health ping: %w", err)
	}

	var one int
	if err := db.SQL.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("persistence: health query: %w", err)
	}
	return nil
}
