// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the indexer: orders, trades,
// the per-market cursor row, and the enum sets mirrored by the Postgres
// enum types. It has no dependencies on internal packages, so it can be
// imported by any layer.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderType is the direction of an order.
type OrderType string

const (
	OrderTypeBuy  OrderType = "Buy"
	OrderTypeSell OrderType = "Sell"
)

// ParseOrderType maps the upstream textual form to an OrderType.
// Anything other than "Buy" or "Sell" is rejected.
func ParseOrderType(s string) (OrderType, bool) {
	switch s {
	case "Buy":
		return OrderTypeBuy, true
	case "Sell":
		return OrderTypeSell, true
	default:
		return "", false
	}
}

// OrderStatus is the lifecycle state of an order. Transitions are monotone:
// New → PartiallyMatched* → one of the terminal states Matched, Cancelled,
// Failed.
type OrderStatus string

const (
	OrderStatusNew              OrderStatus = "New"
	OrderStatusPartiallyMatched OrderStatus = "PartiallyMatched"
	OrderStatusMatched          OrderStatus = "Matched"
	OrderStatusCancelled        OrderStatus = "Cancelled"
	OrderStatusFailed           OrderStatus = "Failed"
)

// Active reports whether an order in this status still rests on the book.
func (s OrderStatus) Active() bool {
	return s == OrderStatusNew || s == OrderStatusPartiallyMatched
}

// LimitType is the time-in-force discipline of the taker order behind a
// trade. It decides partial-fill arithmetic: GTC and MKT orders may leave a
// remainder, IOC and FOK always fill completely.
type LimitType string

const (
	LimitTypeGTC LimitType = "GTC"
	LimitTypeIOC LimitType = "IOC"
	LimitTypeFOK LimitType = "FOK"
	LimitTypeMKT LimitType = "MKT"
)

// ParseLimitType maps the upstream textual form to a LimitType. Unknown or
// empty values default to GTC, matching the upstream encoder.
func ParseLimitType(s string) LimitType {
	switch s {
	case "FOK":
		return LimitTypeFOK
	case "IOC":
		return LimitTypeIOC
	case "MKT":
		return LimitTypeMKT
	default:
		return LimitTypeGTC
	}
}

// Order is one resting order materialized from the chain. OrderID is the
// business key and is globally unique; Amount is the remaining size, not the
// original one.
type Order struct {
	TxID        string      `db:"tx_id" json:"tx_id"`
	OrderID     string      `db:"order_id" json:"order_id"`
	OrderType   OrderType   `db:"order_type" json:"order_type"`
	User        string      `db:"user" json:"user"`
	Asset       string      `db:"asset" json:"asset"`
	Amount      uint64      `db:"amount" json:"amount"`
	Price       uint64      `db:"price" json:"price"`
	Status      OrderStatus `db:"status" json:"status"`
	BlockNumber int64       `db:"block_number" json:"block_number"`
	Timestamp   time.Time   `db:"timestamp" json:"timestamp"`
	MarketID    string      `db:"market_id" json:"market_id"`
}

// UpdateOrder carries a partial mutation of an existing order. A nil Amount
// leaves the stored amount untouched.
type UpdateOrder struct {
	OrderID string
	Amount  *uint64
	Status  OrderStatus
}

// Trade is one fill event against an order. TradeID is a hash the stream
// decoder derives from the event's identifying fields, unique per fill.
type Trade struct {
	TxID        string    `db:"tx_id" json:"tx_id"`
	TradeID     string    `db:"trade_id" json:"trade_id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	LimitType   LimitType `db:"limit_type" json:"limit_type"`
	User        string    `db:"user" json:"user"`
	Size        uint64    `db:"size" json:"size"`
	Price       uint64    `db:"price" json:"price"`
	BlockNumber int64     `db:"block_number" json:"block_number"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	MarketID    string    `db:"market_id" json:"market_id"`
}

// State is the durable per-market cursor. Exactly one row per market;
// LatestProcessedBlock only moves forward except across a prune-and-replay.
type State struct {
	MarketID             string    `db:"market_id" json:"market_id"`
	LatestProcessedBlock int64     `db:"latest_processed_block" json:"latest_processed_block"`
	Timestamp            time.Time `db:"timestamp" json:"timestamp"`
}

// pgTimestampLayout matches row_to_json output for a Postgres
// "timestamp without time zone" column: ISO 8601, optional fractional
// seconds, no zone suffix.
const pgTimestampLayout = "2006-01-02T15:04:05.999999999"

// notifyRow mirrors the trigger payload, which is row_to_json(NEW) of the
// full order row. The timestamp needs a dedicated parse because Postgres
// emits it without a zone.
type notifyRow struct {
	TxID        string      `json:"tx_id"`
	OrderID     string      `json:"order_id"`
	OrderType   OrderType   `json:"order_type"`
	User        string      `json:"user"`
	Asset       string      `json:"asset"`
	Amount      uint64      `json:"amount"`
	Price       uint64      `json:"price"`
	Status      OrderStatus `json:"status"`
	BlockNumber int64       `json:"block_number"`
	Timestamp   string      `json:"timestamp"`
	MarketID    string      `json:"market_id"`
}

// OrderFromPayload parses the JSON payload published on the order_updates
// channel back into an Order. Columns not modeled here (such as the serial
// id) are ignored.
func OrderFromPayload(payload string) (Order, error) {
	var row notifyRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return Order{}, fmt.Errorf("decode order payload: %w", err)
	}

	ts, err := time.Parse(pgTimestampLayout, row.Timestamp)
	if err != nil {
		return Order{}, fmt.Errorf("parse order timestamp %q: %w", row.Timestamp, err)
	}

	return Order{
		TxID:        row.TxID,
		OrderID:     row.OrderID,
		OrderType:   row.OrderType,
		User:        row.User,
		Asset:       row.Asset,
		Amount:      row.Amount,
		Price:       row.Price,
		Status:      row.Status,
		BlockNumber: row.BlockNumber,
		Timestamp:   ts.UTC(),
		MarketID:    row.MarketID,
	}, nil
}
