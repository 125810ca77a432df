package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// State tracks the latest processed block per market, one row per market.
type State struct {
	db *sqlx.DB
}

func NewState(db *sqlx.DB) *State {
	return &State{db: db}
}

// LatestProcessedBlock returns the stored cursor for the market, or nil when
// the market has never been indexed.
func (r *State) LatestProcessedBlock(ctx context.Context, marketID string) (*int64, error) {
	var block int64
	err := r.db.GetContext(ctx, &block,
		`SELECT latest_processed_block FROM state WHERE market_id = $1`, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest processed block: %w", err)
	}
	return &block, nil
}

// UpsertLatestProcessedBlock moves the market cursor to block, creating the
// row on first write.
func (r *State) UpsertLatestProcessedBlock(ctx context.Context, block int64, marketID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state (market_id, latest_processed_block, timestamp)
		VALUES ($1, $2, NOW())
		ON CONFLICT (market_id) DO UPDATE
		SET latest_processed_block = EXCLUDED.latest_processed_block, timestamp = NOW()`,
		marketID, block)
	if err != nil {
		return fmt.Errorf("upsert latest processed block: %w", err)
	}
	return nil
}
