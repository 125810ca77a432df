package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"sparker/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type fakeOrderReader struct {
	orders     []types.Order
	bestBid    *types.Order
	bestAsk    *types.Order
	err        error
	lastCall   string
	lastLimit  uint64
	lastOffset uint64
	lastType   types.OrderType
	lastUserNE *string
}

func (f *fakeOrderReader) Find(_ context.Context, marketID string, limit, offset uint64) ([]types.Order, error) {
	f.lastCall, f.lastLimit, f.lastOffset = "Find", limit, offset
	return f.orders, f.err
}

func (f *fakeOrderReader) FindByType(_ context.Context, marketID string, orderType types.OrderType, limit, offset uint64, userNE *string) ([]types.Order, error) {
	f.lastCall, f.lastLimit, f.lastOffset = "FindByType", limit, offset
	f.lastType, f.lastUserNE = orderType, userNE
	return f.orders, f.err
}

func (f *fakeOrderReader) FindBestBid(_ context.Context, marketID string, userNE *string) (*types.Order, error) {
	f.lastCall, f.lastUserNE = "FindBestBid", userNE
	return f.bestBid, f.err
}

func (f *fakeOrderReader) FindBestAsk(_ context.Context, marketID string, userNE *string) (*types.Order, error) {
	f.lastCall, f.lastUserNE = "FindBestAsk", userNE
	return f.bestAsk, f.err
}

type fakeTradeReader struct {
	trades []types.Trade
	err    error
}

func (f *fakeTradeReader) Find(_ context.Context, marketID string, limit, offset uint64) ([]types.Trade, error) {
	return f.trades, f.err
}

func serve(orders OrderReader, trades TradeReader, target string) *httptest.ResponseRecorder {
	mux := newMux(NewHandlers(orders, trades, testLogger()))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func sampleOrder() types.Order {
	return types.Order{
		TxID:        "0xtx",
		OrderID:     "0xorder",
		OrderType:   types.OrderTypeBuy,
		User:        "0xuser",
		Asset:       "0xasset",
		Amount:      1500,
		Price:       70_000,
		Status:      types.OrderStatusNew,
		BlockNumber: 12,
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
		MarketID:    "0xmarket",
	}
}

func TestHandleHealth(t *testing.T) {
	rec := serve(&fakeOrderReader{}, &fakeTradeReader{}, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListOrdersDefaults(t *testing.T) {
	orders := &fakeOrderReader{orders: []types.Order{sampleOrder()}}
	rec := serve(orders, &fakeTradeReader{}, "/orders/list?market_id=0xmarket")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if orders.lastCall != "Find" {
		t.Errorf("repository call = %s, want Find", orders.lastCall)
	}
	if orders.lastLimit != 50 || orders.lastOffset != 0 {
		t.Errorf("pagination = (%d, %d), want (50, 0)", orders.lastLimit, orders.lastOffset)
	}

	var body []types.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 1 || body[0].OrderID != "0xorder" {
		t.Errorf("body = %+v", body)
	}
}

func TestListOrdersZeroLimitUsesDefault(t *testing.T) {
	orders := &fakeOrderReader{}
	rec := serve(orders, &fakeTradeReader{}, "/orders/list?market_id=0xmarket&limit=0")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if orders.lastLimit != 50 {
		t.Errorf("limit = %d, want 50", orders.lastLimit)
	}
}

func TestListOrdersByType(t *testing.T) {
	orders := &fakeOrderReader{}
	rec := serve(orders, &fakeTradeReader{},
		"/orders/list?market_id=0xmarket&order_type=Sell&user_ne=0xme&limit=10&offset=20")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if orders.lastCall != "FindByType" {
		t.Errorf("repository call = %s, want FindByType", orders.lastCall)
	}
	if orders.lastType != types.OrderTypeSell {
		t.Errorf("order type = %s, want Sell", orders.lastType)
	}
	if orders.lastLimit != 10 || orders.lastOffset != 20 {
		t.Errorf("pagination = (%d, %d), want (10, 20)", orders.lastLimit, orders.lastOffset)
	}
	if orders.lastUserNE == nil || *orders.lastUserNE != "0xme" {
		t.Errorf("user_ne = %v, want 0xme", orders.lastUserNE)
	}
}

func TestListOrdersBadRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing market", "/orders/list"},
		{"unknown order type", "/orders/list?market_id=0xmarket&order_type=Short"},
		{"malformed limit", "/orders/list?market_id=0xmarket&limit=ten"},
		{"malformed offset", "/orders/list?market_id=0xmarket&offset=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&fakeOrderReader{}, &fakeTradeReader{}, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListOrdersRepositoryError(t *testing.T) {
	orders := &fakeOrderReader{err: errors.New("connection refused")}
	rec := serve(orders, &fakeTradeReader{}, "/orders/list?market_id=0xmarket")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body = %q, want the repository error text", rec.Body)
	}
}

func TestSpread(t *testing.T) {
	bid := sampleOrder()
	ask := sampleOrder()
	ask.OrderType = types.OrderTypeSell
	ask.Price = 71_000
	orders := &fakeOrderReader{bestBid: &bid, bestAsk: &ask}

	rec := serve(orders, &fakeTradeReader{}, "/orders/spread?market_id=0xmarket")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var spread Spread
	if err := json.Unmarshal(rec.Body.Bytes(), &spread); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if spread.BestBid == nil || spread.BestBid.Price != 70_000 {
		t.Errorf("best_bid = %+v", spread.BestBid)
	}
	if spread.BestAsk == nil || spread.BestAsk.Price != 71_000 {
		t.Errorf("best_ask = %+v", spread.BestAsk)
	}
}

func TestSpreadEmptyBook(t *testing.T) {
	rec := serve(&fakeOrderReader{}, &fakeTradeReader{}, "/orders/spread?market_id=0xmarket")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var spread Spread
	if err := json.Unmarshal(rec.Body.Bytes(), &spread); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if spread.BestBid != nil || spread.BestAsk != nil {
		t.Errorf("spread = %+v, want both sides null", spread)
	}
}

func TestBestBidPassesUserNE(t *testing.T) {
	bid := sampleOrder()
	orders := &fakeOrderReader{bestBid: &bid}

	rec := serve(orders, &fakeTradeReader{}, "/orders/best-bid?market_id=0xmarket&user_ne=0xme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if orders.lastCall != "FindBestBid" {
		t.Errorf("repository call = %s, want FindBestBid", orders.lastCall)
	}
	if orders.lastUserNE == nil || *orders.lastUserNE != "0xme" {
		t.Errorf("user_ne = %v, want 0xme", orders.lastUserNE)
	}
}

func TestBestAskEmptySideIsNull(t *testing.T) {
	rec := serve(&fakeOrderReader{}, &fakeTradeReader{}, "/orders/best-ask?market_id=0xmarket")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "null" {
		t.Errorf("body = %q, want null", got)
	}
}

func TestListTrades(t *testing.T) {
	trades := &fakeTradeReader{trades: []types.Trade{{
		TradeID:  "0xtrade",
		OrderID:  "0xorder",
		Size:     10,
		MarketID: "0xmarket",
	}}}

	rec := serve(&fakeOrderReader{}, trades, "/trades/list?market_id=0xmarket")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var body []types.Trade
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 1 || body[0].TradeID != "0xtrade" {
		t.Errorf("body = %+v", body)
	}
}

func TestOnlyGETIsRouted(t *testing.T) {
	mux := newMux(NewHandlers(&fakeOrderReader{}, &fakeTradeReader{}, testLogger()))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/list?market_id=0xmarket", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	rec := serve(&fakeOrderReader{}, &fakeTradeReader{}, "/api-docs/openapi.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi document is not valid JSON: %v", err)
	}
	if doc.OpenAPI == "" {
		t.Error("openapi version missing")
	}
	for _, path := range []string{"/health", "/orders/list", "/orders/spread", "/orders/best-bid", "/orders/best-ask", "/trades/list"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("path %s missing from openapi document", path)
		}
	}
}

func TestSwaggerUIPointsAtDocument(t *testing.T) {
	rec := serve(&fakeOrderReader{}, &fakeTradeReader{}, "/swagger-ui")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api-docs/openapi.json") {
		t.Error("swagger ui page does not reference the openapi document")
	}
}
