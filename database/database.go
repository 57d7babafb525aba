package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

func Connect(dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxIdleConns(5)
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	return db, nil
}

// The partial unique index is what keeps a slot from being confirmed twice;
// cancelled and completed rows fall outside it and never block rebooking.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	booking_date TIMESTAMPTZ NOT NULL,
	time_slot TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'confirmed',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_confirmed_slot_key ON bookings (booking_date, time_slot) WHERE status = 'confirmed'`,
	`CREATE INDEX IF NOT EXISTS bookings_expires_at_idx ON bookings (expires_at)`,
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec context: %w", err)
		}
	}
	return nil
}

// Postgres connects the gateway to PostgreSQL through lib/pq.
type Postgres struct {
	MaxOpenConns int
}

func (p Postgres) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := Connect(dsn, p.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func (Postgres) Ping(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

func (Postgres) Close(_ context.Context, db *sql.DB) error {
	return db.Close()
}
