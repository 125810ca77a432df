// Package repo implements Postgres persistence for orders, trades, and the
// per-market cursor. All methods are idempotent where the dispatcher relies
// on it: inserts land on unique business keys with ON CONFLICT DO NOTHING,
// the cursor is a single upserted row per market.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound is returned by Update when the referenced order does not exist.
var ErrNotFound = errors.New("record not found")

const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 30 * time.Second
	pingTimeout     = 10 * time.Second
)

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
