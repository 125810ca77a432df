package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sparker/pkg/types"
)

const orderColumns = `tx_id, order_id, order_type, "user", asset, amount, price, status, block_number, timestamp, market_id`

// activeStatuses is the set of statuses an order can still be filled in.
const activeStatuses = `('New', 'PartiallyMatched')`

// Orders reads and writes rows of the "order" table.
type Orders struct {
	db *sqlx.DB
}

func NewOrders(db *sqlx.DB) *Orders {
	return &Orders{db: db}
}

// FindBestBid returns the highest-priced active buy order for the market,
// or nil when the book has no bids. A non-nil userNE excludes orders owned
// by that user.
func (r *Orders) FindBestBid(ctx context.Context, marketID string, userNE *string) (*types.Order, error) {
	return r.findBest(ctx, marketID, types.OrderTypeBuy, userNE)
}

// FindBestAsk returns the lowest-priced active sell order for the market,
// or nil when the book has no asks.
func (r *Orders) FindBestAsk(ctx context.Context, marketID string, userNE *string) (*types.Order, error) {
	return r.findBest(ctx, marketID, types.OrderTypeSell, userNE)
}

func (r *Orders) findBest(ctx context.Context, marketID string, orderType types.OrderType, userNE *string) (*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM "order"
		WHERE market_id = $1 AND order_type = $2 AND status IN ` + activeStatuses
	args := []any{marketID, orderType}
	if userNE != nil {
		query += ` AND "user" <> $3`
		args = append(args, *userNE)
	}
	dir := "DESC"
	if orderType == types.OrderTypeSell {
		dir = "ASC"
	}
	query += ` ORDER BY price ` + dir + `, id ASC LIMIT 1`

	var order types.Order
	if err := r.db.GetContext(ctx, &order, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find best %s: %w", orderType, err)
	}
	return &order, nil
}

// FindByID returns the order with the given exchange order id, or nil when
// no such order has been indexed.
func (r *Orders) FindByID(ctx context.Context, orderID string) (*types.Order, error) {
	var order types.Order
	err := r.db.GetContext(ctx, &order,
		`SELECT `+orderColumns+` FROM "order" WHERE order_id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	return &order, nil
}

// Find lists active orders for a market, newest first.
func (r *Orders) Find(ctx context.Context, marketID string, limit, offset uint64) ([]types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM "order"
		WHERE market_id = $1 AND status IN ` + activeStatuses + `
		ORDER BY timestamp DESC, id DESC LIMIT $2 OFFSET $3`

	orders := []types.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, marketID, limit, offset); err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return orders, nil
}

// FindByType lists active orders of one side for a market, best price first:
// descending for buys, ascending for sells.
func (r *Orders) FindByType(ctx context.Context, marketID string, orderType types.OrderType, limit, offset uint64, userNE *string) ([]types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM "order"
		WHERE market_id = $1 AND order_type = $2 AND status IN ` + activeStatuses
	args := []any{marketID, orderType}
	n := 3
	if userNE != nil {
		query += fmt.Sprintf(` AND "user" <> $%d`, n)
		args = append(args, *userNE)
		n++
	}
	dir := "DESC"
	if orderType == types.OrderTypeSell {
		dir = "ASC"
	}
	query += fmt.Sprintf(` ORDER BY price %s, id ASC LIMIT $%d OFFSET $%d`, dir, n, n+1)
	args = append(args, limit, offset)

	orders := []types.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("find %s orders: %w", orderType, err)
	}
	return orders, nil
}

const insertOrderQuery = `INSERT INTO "order" (` + orderColumns + `)
	VALUES (:tx_id, :order_id, :order_type, :user, :asset, :amount, :price, :status, :block_number, :timestamp, :market_id)
	ON CONFLICT (order_id) DO NOTHING`

// Insert stores one order. Replays of an already indexed order are ignored.
func (r *Orders) Insert(ctx context.Context, order types.Order) error {
	if _, err := r.db.NamedExecContext(ctx, insertOrderQuery, order); err != nil {
		return fmt.Errorf("insert order %s: %w", order.OrderID, err)
	}
	return nil
}

// InsertMany stores a batch of orders in a single statement. Duplicates of
// already indexed orders are ignored.
func (r *Orders) InsertMany(ctx context.Context, orders []types.Order) error {
	if len(orders) == 0 {
		return nil
	}
	if _, err := r.db.NamedExecContext(ctx, insertOrderQuery, orders); err != nil {
		return fmt.Errorf("insert %d orders: %w", len(orders), err)
	}
	return nil
}

// Update applies a status change, and optionally a new remaining amount, to
// an existing order. Returns ErrNotFound when the order id is unknown.
func (r *Orders) Update(ctx context.Context, upd types.UpdateOrder) (*types.Order, error) {
	query := `UPDATE "order"
		SET amount = COALESCE($2, amount), status = $3
		WHERE order_id = $1
		RETURNING ` + orderColumns

	var order types.Order
	err := r.db.GetContext(ctx, &order, query, upd.OrderID, upd.Amount, upd.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("update order %s: %w", upd.OrderID, ErrNotFound)
		}
		return nil, fmt.Errorf("update order %s: %w", upd.OrderID, err)
	}
	return &order, nil
}

// DeleteMany removes every order of the market at or above fromBlock and
// reports how many rows went away. Used when rewinding before a catch-up.
func (r *Orders) DeleteMany(ctx context.Context, marketID string, fromBlock int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM "order" WHERE market_id = $1 AND block_number >= $2`, marketID, fromBlock)
	if err != nil {
		return 0, fmt.Errorf("delete orders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete orders: rows affected: %w", err)
	}
	return n, nil
}
