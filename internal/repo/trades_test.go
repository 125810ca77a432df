package repo

import (
	"fmt"
	"testing"
	"time"

	"sparker/pkg/types"
)

// trade builds a unique valid trade against an existing order. Trades carry
// a foreign key to the order they filled, so callers insert the order first.
func (f *fixture) trade(orderID string, mut ...func(*types.Trade)) types.Trade {
	f.seq++
	tr := types.Trade{
		TxID:        fmt.Sprintf("0xtx-%d", f.seq),
		TradeID:     fmt.Sprintf("%s-trade-%d", f.market, f.seq),
		OrderID:     orderID,
		LimitType:   types.LimitTypeGTC,
		User:        "0xuser",
		Size:        10,
		Price:       1000,
		BlockNumber: int64(f.seq),
		Timestamp:   time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Second),
		MarketID:    f.market,
	}
	for _, m := range mut {
		m(&tr)
	}
	return tr
}

func (f *fixture) insertTrades(trades ...types.Trade) {
	f.t.Helper()
	if err := f.trades.InsertMany(f.ctx, trades); err != nil {
		f.t.Fatalf("InsertMany trades: %v", err)
	}
}

func tradeIDs(trades []types.Trade) []string {
	ids := make([]string, len(trades))
	for i, tr := range trades {
		ids[i] = tr.TradeID
	}
	return ids
}

func TestTradesInsertRequiresOrder(t *testing.T) {
	f := newFixture(t)

	orphan := f.trade(f.market + "-no-such-order")
	if err := f.trades.Insert(f.ctx, orphan); err == nil {
		t.Error("insert of a trade without its order succeeded, want foreign key error")
	}
}

func TestTradesInsertIdempotentAndFind(t *testing.T) {
	f := newFixture(t)

	o := f.order()
	f.insertOrders(o)

	older := f.trade(o.OrderID)
	newer := f.trade(o.OrderID, func(tr *types.Trade) { tr.LimitType = types.LimitTypeIOC })
	f.insertTrades(older, newer)

	replay := older
	replay.Size = 999
	if err := f.trades.Insert(f.ctx, replay); err != nil {
		t.Fatalf("replayed Insert: %v", err)
	}

	got, err := f.trades.Find(f.ctx, f.market, 10, 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 || got[0].TradeID != newer.TradeID || got[1].TradeID != older.TradeID {
		t.Fatalf("Find = %v, want newest first", tradeIDs(got))
	}
	if got[1].Size != 10 {
		t.Errorf("size = %d, want the first write kept on replay", got[1].Size)
	}
	if got[0].LimitType != types.LimitTypeIOC {
		t.Errorf("limit_type = %s, want IOC", got[0].LimitType)
	}

	page, err := f.trades.Find(f.ctx, f.market, 1, 1)
	if err != nil {
		t.Fatalf("Find page: %v", err)
	}
	if len(page) != 1 || page[0].TradeID != older.TradeID {
		t.Errorf("Find limit 1 offset 1 = %v, want the older trade", tradeIDs(page))
	}

	if err := f.trades.InsertMany(f.ctx, nil); err != nil {
		t.Errorf("empty InsertMany: %v", err)
	}
}

func TestTradesDeleteManyFromBlock(t *testing.T) {
	f := newFixture(t)

	o := f.order()
	f.insertOrders(o)

	keep := f.trade(o.OrderID)   // block 2
	purge1 := f.trade(o.OrderID) // block 3
	purge2 := f.trade(o.OrderID) // block 4
	f.insertTrades(keep, purge1, purge2)

	n, err := f.trades.DeleteMany(f.ctx, f.market, 3)
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	got, err := f.trades.Find(f.ctx, f.market, 10, 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 || got[0].TradeID != keep.TradeID {
		t.Errorf("remaining trades = %v, want only the pre-prune row", tradeIDs(got))
	}
}
