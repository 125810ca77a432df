package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sparker/pkg/types"
)

const tradeColumns = `tx_id, trade_id, order_id, limit_type, "user", size, price, block_number, timestamp, market_id`

// Trades reads and writes rows of the trade table.
type Trades struct {
	db *sqlx.DB
}

func NewTrades(db *sqlx.DB) *Trades {
	return &Trades{db: db}
}

// Find lists trades for a market, newest first.
func (r *Trades) Find(ctx context.Context, marketID string, limit, offset uint64) ([]types.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade WHERE market_id = $1
		ORDER BY timestamp DESC, id DESC LIMIT $2 OFFSET $3`

	trades := []types.Trade{}
	if err := r.db.SelectContext(ctx, &trades, query, marketID, limit, offset); err != nil {
		return nil, fmt.Errorf("find trades: %w", err)
	}
	return trades, nil
}

const insertTradeQuery = `INSERT INTO trade (` + tradeColumns + `)
	VALUES (:tx_id, :trade_id, :order_id, :limit_type, :user, :size, :price, :block_number, :timestamp, :market_id)
	ON CONFLICT (trade_id) DO NOTHING`

// Insert stores one trade. Replays of an already indexed trade are ignored.
func (r *Trades) Insert(ctx context.Context, trade types.Trade) error {
	if _, err := r.db.NamedExecContext(ctx, insertTradeQuery, trade); err != nil {
		return fmt.Errorf("insert trade %s: %w", trade.TradeID, err)
	}
	return nil
}

// InsertMany stores a batch of trades in a single statement. Duplicates of
// already indexed trades are ignored.
func (r *Trades) InsertMany(ctx context.Context, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	if _, err := r.db.NamedExecContext(ctx, insertTradeQuery, trades); err != nil {
		return fmt.Errorf("insert %d trades: %w", len(trades), err)
	}
	return nil
}

// DeleteMany removes every trade of the market at or above fromBlock and
// reports how many rows went away. Trades go before orders so the foreign
// key on order_id holds.
func (r *Trades) DeleteMany(ctx context.Context, marketID string, fromBlock int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM trade WHERE market_id = $1 AND block_number >= $2`, marketID, fromBlock)
	if err != nil {
		return 0, fmt.Errorf("delete trades: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete trades: rows affected: %w", err)
	}
	return n, nil
}
