// Package pangea ingests the Spark order event stream: a WebSocket client
// for the upstream service, the raw event decoder, and the per-market
// indexer that drives the dispatch queue.
package pangea

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"sparker/pkg/types"
)

const (
	eventTypeOpen   = "Open"
	eventTypeTrade  = "Trade"
	eventTypeCancel = "Cancel"
)

// RawEvent is one frame of the Spark order stream. The block and transaction
// fields are always present; the rest depend on the event type.
type RawEvent struct {
	Chain            uint64  `json:"chain"`
	BlockNumber      int64   `json:"block_number"`
	BlockHash        string  `json:"block_hash"`
	BlockTimestamp   int64   `json:"block_timestamp"`
	TransactionHash  string  `json:"transaction_hash"`
	TransactionIndex uint64  `json:"transaction_index"`
	LogIndex         uint64  `json:"log_index"`
	MarketID         string  `json:"market_id"`
	OrderID          string  `json:"order_id"`
	EventType        *string `json:"event_type"`
	Asset            *string `json:"asset"`
	Amount           *uint64 `json:"amount"`
	AssetType        *string `json:"asset_type"`
	OrderType        *string `json:"order_type"`
	Price            *uint64 `json:"price"`
	User             *string `json:"user"`
	OrderMatcher     *string `json:"order_matcher"`
	Owner            *string `json:"owner"`
	LimitType        *string `json:"limit_type"`
}

func decodeEvent(frame []byte) (RawEvent, error) {
	var event RawEvent
	if err := json.Unmarshal(frame, &event); err != nil {
		return RawEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func (e *RawEvent) orderType() (types.OrderType, bool) {
	if e.OrderType == nil {
		return "", false
	}
	orderType, ok := types.ParseOrderType(*e.OrderType)
	if !ok {
		return "", false
	}
	return orderType, true
}

func (e *RawEvent) limitType() types.LimitType {
	if e.LimitType == nil {
		return types.LimitTypeGTC
	}
	return types.ParseLimitType(*e.LimitType)
}

// BuildOrder maps an Open event to an order row. It reports false when the
// event misses price, amount, or user, or carries an unresolvable order
// type.
func (e *RawEvent) BuildOrder() (types.Order, bool) {
	if e.Price == nil || e.Amount == nil || e.User == nil {
		return types.Order{}, false
	}
	orderType, ok := e.orderType()
	if !ok {
		return types.Order{}, false
	}
	var asset string
	if e.Asset != nil {
		asset = *e.Asset
	}
	return types.Order{
		TxID:        e.TransactionHash,
		OrderID:     e.OrderID,
		OrderType:   orderType,
		User:        *e.User,
		Asset:       asset,
		Amount:      *e.Amount,
		Price:       *e.Price,
		Status:      types.OrderStatusNew,
		BlockNumber: e.BlockNumber,
		Timestamp:   time.Unix(e.BlockTimestamp, 0).UTC(),
		MarketID:    e.MarketID,
	}, true
}

// BuildTrade maps a Trade event to a trade row. It reports false when the
// event misses price or amount. A missing user becomes the empty string.
func (e *RawEvent) BuildTrade() (types.Trade, bool) {
	if e.Price == nil || e.Amount == nil {
		return types.Trade{}, false
	}
	var user string
	if e.User != nil {
		user = *e.User
	}
	return types.Trade{
		TxID:        e.TransactionHash,
		TradeID:     tradeID(e.TransactionHash, e.OrderID, e.BlockTimestamp, *e.Amount, e.LogIndex),
		OrderID:     e.OrderID,
		LimitType:   e.limitType(),
		User:        user,
		Size:        *e.Amount,
		Price:       *e.Price,
		BlockNumber: e.BlockNumber,
		Timestamp:   time.Unix(e.BlockTimestamp, 0).UTC(),
		MarketID:    e.MarketID,
	}, true
}

// tradeID derives the deterministic trade identifier from the raw textual
// concatenation of its inputs. The exact byte layout is a compatibility
// contract with other consumers of the stream; do not change it.
func tradeID(txHash, orderID string, blockTimestamp int64, amount, logIndex uint64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s%d%d%d", txHash, orderID, blockTimestamp, amount, logIndex)))
	return "0x" + hex.EncodeToString(sum[:])
}
