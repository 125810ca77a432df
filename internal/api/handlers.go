package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sparker/pkg/types"
)

const (
	defaultLimit  = 50
	defaultOffset = 0
)

// OrderReader is the slice of the order repository the handlers read from.
type OrderReader interface {
	Find(ctx context.Context, marketID string, limit, offset uint64) ([]types.Order, error)
	FindByType(ctx context.Context, marketID string, orderType types.OrderType, limit, offset uint64, userNE *string) ([]types.Order, error)
	FindBestBid(ctx context.Context, marketID string, userNE *string) (*types.Order, error)
	FindBestAsk(ctx context.Context, marketID string, userNE *string) (*types.Order, error)
}

// TradeReader is the slice of the trade repository the handlers read from.
type TradeReader interface {
	Find(ctx context.Context, marketID string, limit, offset uint64) ([]types.Trade, error)
}

// Spread is the top of the book as served by /orders/spread. Either side is
// null when that side of the book is empty.
type Spread struct {
	BestBid *types.Order `json:"best_bid"`
	BestAsk *types.Order `json:"best_ask"`
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	orders OrderReader
	trades TradeReader
	logger *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(orders OrderReader, trades TradeReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		orders: orders,
		trades: trades,
		logger: logger.With("component", "api-handlers"),
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleListOrders lists active orders of a market, newest first. An
// order_type filter switches to a price-ordered listing of that side and
// enables the user_ne exclusion.
func (h *Handlers) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	marketID, ok := requiredMarket(w, q)
	if !ok {
		return
	}
	limit, offset, err := pagination(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var orders []types.Order
	if raw := q.Get("order_type"); raw != "" {
		orderType, ok := types.ParseOrderType(raw)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown order_type %q", raw), http.StatusBadRequest)
			return
		}
		orders, err = h.orders.FindByType(r.Context(), marketID, orderType, limit, offset, optional(q, "user_ne"))
	} else {
		orders, err = h.orders.Find(r.Context(), marketID, limit, offset)
	}
	if err != nil {
		h.logger.Error("list orders failed", "error", err, "market_id", marketID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, orders)
}

// HandleSpread returns the best bid and the best ask of a market.
func (h *Handlers) HandleSpread(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	marketID, ok := requiredMarket(w, q)
	if !ok {
		return
	}
	userNE := optional(q, "user_ne")

	bestBid, err := h.orders.FindBestBid(r.Context(), marketID, userNE)
	if err != nil {
		h.logger.Error("spread failed", "error", err, "market_id", marketID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	bestAsk, err := h.orders.FindBestAsk(r.Context(), marketID, userNE)
	if err != nil {
		h.logger.Error("spread failed", "error", err, "market_id", marketID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, Spread{BestBid: bestBid, BestAsk: bestAsk})
}

// HandleBestBid returns the highest-priced active buy order of a market, or
// null when the bid side is empty.
func (h *Handlers) HandleBestBid(w http.ResponseWriter, r *http.Request) {
	h.handleBest(w, r, h.orders.FindBestBid)
}

// HandleBestAsk returns the lowest-priced active sell order of a market, or
// null when the ask side is empty.
func (h *Handlers) HandleBestAsk(w http.ResponseWriter, r *http.Request) {
	h.handleBest(w, r, h.orders.FindBestAsk)
}

func (h *Handlers) handleBest(w http.ResponseWriter, r *http.Request, find func(context.Context, string, *string) (*types.Order, error)) {
	q := r.URL.Query()

	marketID, ok := requiredMarket(w, q)
	if !ok {
		return
	}

	order, err := find(r.Context(), marketID, optional(q, "user_ne"))
	if err != nil {
		h.logger.Error("best order lookup failed", "error", err, "market_id", marketID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, order)
}

// HandleListTrades lists trades of a market, newest first.
func (h *Handlers) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	marketID, ok := requiredMarket(w, q)
	if !ok {
		return
	}
	limit, offset, err := pagination(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trades, err := h.trades.Find(r.Context(), marketID, limit, offset)
	if err != nil {
		h.logger.Error("list trades failed", "error", err, "market_id", marketID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, trades)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func requiredMarket(w http.ResponseWriter, q url.Values) (string, bool) {
	marketID := q.Get("market_id")
	if marketID == "" {
		http.Error(w, "market_id is required", http.StatusBadRequest)
		return "", false
	}
	return marketID, true
}

func pagination(q url.Values) (limit, offset uint64, err error) {
	limit, offset = defaultLimit, defaultOffset
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset %q", raw)
		}
	}
	if limit == 0 {
		limit = defaultLimit
	}
	return limit, offset, nil
}

func optional(q url.Values, name string) *string {
	if !q.Has(name) {
		return nil
	}
	v := q.Get(name)
	return &v
}
