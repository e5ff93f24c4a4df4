// Package persistence stores assembled reports in PostgreSQL
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB wraps a PostgreSQL connection pool
type PostgresDB struct {
	db      *sql.DB
	reports ReportRepository
}

// NewPostgresDB opens and verifies a PostgreSQL connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresDBWithConn(db), nil
}

// NewPostgresDBWithConn wraps an already opened pool
func NewPostgresDBWithConn(db *sql.DB) *PostgresDB {
	return &PostgresDB{
		db:      db,
		reports: &postgresReportRepo{db: db},
	}
}

func (p *PostgresDB) Reports() ReportRepository { return p.reports }

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
