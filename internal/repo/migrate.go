package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	name       string
	statements []string
}

// Schema history. Append only, never edit an applied entry.
var migrations = []migration{
	{
		name: "create_types",
		statements: []string{
			`CREATE TYPE order_type AS ENUM ('Buy', 'Sell')`,
			`CREATE TYPE order_status AS ENUM ('New', 'PartiallyMatched', 'Matched', 'Cancelled', 'Failed')`,
			`CREATE TYPE limit_type AS ENUM ('GTC', 'IOC', 'FOK', 'MKT')`,
		},
	},
	{
		name: "create_order",
		statements: []string{
			`CREATE TABLE "order" (
				id SERIAL PRIMARY KEY,
				tx_id VARCHAR NOT NULL,
				order_id VARCHAR NOT NULL UNIQUE,
				order_type order_type NOT NULL,
				"user" VARCHAR NOT NULL,
				asset VARCHAR NOT NULL,
				amount BIGINT NOT NULL,
				price BIGINT NOT NULL,
				status order_status NOT NULL,
				block_number BIGINT NOT NULL,
				timestamp TIMESTAMP NOT NULL,
				market_id VARCHAR NOT NULL
			)`,
			`CREATE INDEX idx_order_market_status ON "order" (market_id, status)`,
		},
	},
	{
		name: "create_trade",
		statements: []string{
			`CREATE TABLE trade (
				id SERIAL PRIMARY KEY,
				tx_id VARCHAR NOT NULL,
				trade_id VARCHAR NOT NULL UNIQUE,
				order_id VARCHAR NOT NULL,
				limit_type limit_type NOT NULL,
				"user" VARCHAR NOT NULL,
				size BIGINT NOT NULL,
				price BIGINT NOT NULL,
				block_number BIGINT NOT NULL,
				timestamp TIMESTAMP NOT NULL,
				market_id VARCHAR NOT NULL,
				CONSTRAINT fk_trade_order FOREIGN KEY (order_id) REFERENCES "order" (order_id)
			)`,
			`CREATE INDEX idx_trade_market_block ON trade (market_id, block_number)`,
		},
	},
	{
		name: "create_state",
		statements: []string{
			`CREATE TABLE state (
				id SERIAL PRIMARY KEY,
				market_id VARCHAR NOT NULL UNIQUE,
				latest_processed_block BIGINT NOT NULL,
				timestamp TIMESTAMP NOT NULL
			)`,
		},
	},
	{
		name: "create_order_updates",
		statements: []string{
			`CREATE OR REPLACE FUNCTION notify_order_update() RETURNS trigger AS $$
			BEGIN
				PERFORM pg_notify('order_updates', row_to_json(NEW)::text);
				RETURN NEW;
			END;
			$$ LANGUAGE plpgsql`,
			`CREATE TRIGGER order_update_trigger
				AFTER INSERT OR UPDATE ON "order"
				FOR EACH ROW
				EXECUTE PROCEDURE notify_order_update()`,
		},
	},
}

// Migrate applies any schema migrations not yet recorded in
// schema_migrations. Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, m migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var applied bool
	err = tx.GetContext(ctx, &applied,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, m.name)
	if err != nil {
		return fmt.Errorf("check applied: %w", err)
	}
	if applied {
		return nil
	}

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name) VALUES ($1)`, m.name); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
