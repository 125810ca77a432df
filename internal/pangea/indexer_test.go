package pangea

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"sparker/internal/dispatch"
)

const testMarketID = "0x3bd9e7babfc0dbc4b8b1b1d0cb51429f74dcd061c4cc4fbbaa4c1d6f0c9f1487"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type fakeSink struct {
	adds       []dispatch.Update
	dispatches []int64
	prunes     []int64
}

func (f *fakeSink) Add(update dispatch.Update) { f.adds = append(f.adds, update) }
func (f *fakeSink) Dispatch(block int64)       { f.dispatches = append(f.dispatches, block) }
func (f *fakeSink) Prune(fromBlock int64)      { f.prunes = append(f.prunes, fromBlock) }

type fakeProvider struct {
	height int64
	err    error
}

func (f *fakeProvider) LatestBlockHeight(context.Context) (int64, error) {
	return f.height, f.err
}

// fakeOpener hands out scripted streams in order. A nil entry simulates a
// failed open; once the script runs out it cancels the run so Start returns.
type fakeOpener struct {
	streams  []*Stream
	requests []StreamRequest
	cancel   context.CancelFunc
}

func (f *fakeOpener) Stream(_ context.Context, req StreamRequest) (*Stream, error) {
	f.requests = append(f.requests, req)
	if len(f.streams) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		return nil, errors.New("script exhausted")
	}
	s := f.streams[0]
	f.streams = f.streams[1:]
	if s == nil {
		return nil, errors.New("scripted open failure")
	}
	return s, nil
}

// cannedStream builds an already-finished stream whose frames are all
// buffered. err is what Err reports after the frames drain.
func cannedStream(err error, frames ...[]byte) *Stream {
	s := &Stream{frames: make(chan []byte, len(frames)+1)}
	for _, f := range frames {
		s.frames <- f
	}
	s.err = err
	close(s.frames)
	return s
}

func eventFrame(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	base := map[string]any{
		"chain":             0,
		"block_hash":        "0xblock",
		"block_timestamp":   1730466173,
		"transaction_hash":  "0xtx",
		"transaction_index": 0,
		"log_index":         0,
		"market_id":         testMarketID,
		"order_id":          "0xorder",
	}
	for k, v := range fields {
		base[k] = v
	}
	b, err := json.Marshal(base)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}

func openEventFrame(t *testing.T, orderID string, block int64) []byte {
	return eventFrame(t, map[string]any{
		"block_number": block,
		"order_id":     orderID,
		"event_type":   "Open",
		"order_type":   "Buy",
		"price":        70000,
		"amount":       500,
		"user":         "0xuser",
		"asset":        "0xasset",
	})
}

func tradeEventFrame(t *testing.T, orderID string, block int64) []byte {
	return eventFrame(t, map[string]any{
		"block_number": block,
		"order_id":     orderID,
		"event_type":   "Trade",
		"price":        70000,
		"amount":       100,
		"user":         "0xtaker",
		"limit_type":   "GTC",
	})
}

// startIndexer runs a full Start against the scripted opener and blocks
// until the script cancels the run.
func startIndexer(t *testing.T, opener *fakeOpener, provider *fakeProvider, sink *fakeSink, cursor int64) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener.cancel = cancel

	ix := NewIndexer(opener, provider, sink, testMarketID, "FUELTESTNET", testLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- ix.Start(ctx, cursor) }()

	select {
	case err := <-errCh:
		return err
	case <-time.After(30 * time.Second):
		t.Fatal("indexer did not stop")
		return nil
	}
}

func TestStartPruneCatchUpThenSubscribe(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{streams: []*Stream{
		cannedStream(nil), // [10, 100010]
		cannedStream(nil), // [100010, 200010]
		cannedStream(nil), // [200010, 250000]
		cannedStream(nil, openEventFrame(t, "0xa", 250001)), // live
	}}
	sink := &fakeSink{}

	err := startIndexer(t, opener, &fakeProvider{height: 250000}, sink, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start = %v, want context.Canceled", err)
	}

	if len(sink.prunes) != 1 || sink.prunes[0] != 10 {
		t.Errorf("prunes = %v, want [10]", sink.prunes)
	}

	// Three catch-up batches plus the first subscribe, plus the exhausted
	// retry after the live stream ended.
	if len(opener.requests) != 5 {
		t.Fatalf("requests = %d, want 5: %+v", len(opener.requests), opener.requests)
	}
	batches := []struct{ from, to int64 }{
		{10, 100010},
		{100010, 200010},
		{200010, 250000},
	}
	for i, want := range batches {
		req := opener.requests[i]
		if req.FromBlock != want.from || req.ToBlock.subscribe || req.ToBlock.block != want.to {
			t.Errorf("batch %d = from %d to %+v, want [%d, %d]", i, req.FromBlock, req.ToBlock, want.from, want.to)
		}
		if req.Format != formatJSONStream {
			t.Errorf("batch %d format = %q", i, req.Format)
		}
		if len(req.Chains) != 1 || req.Chains[0] != "FUELTESTNET" {
			t.Errorf("batch %d chains = %v", i, req.Chains)
		}
		if len(req.MarketIDIn) != 1 || req.MarketIDIn[0] != testMarketID {
			t.Errorf("batch %d markets = %v", i, req.MarketIDIn)
		}
	}
	live := opener.requests[3]
	if live.FromBlock != 250001 || !live.ToBlock.subscribe {
		t.Errorf("live request = from %d %+v, want from 250001 subscribe", live.FromBlock, live.ToBlock)
	}

	// Empty batches dispatch the unadvanced cursor; the live event advances
	// it and dispatches per event.
	wantDispatches := []int64{10, 100010, 200010, 250001}
	if len(sink.dispatches) != len(wantDispatches) {
		t.Fatalf("dispatches = %v, want %v", sink.dispatches, wantDispatches)
	}
	for i, want := range wantDispatches {
		if sink.dispatches[i] != want {
			t.Errorf("dispatch %d = %d, want %d", i, sink.dispatches[i], want)
		}
	}

	if len(sink.adds) != 1 || sink.adds[0].Kind != dispatch.UpdateOpenOrder {
		t.Fatalf("adds = %+v, want one open order", sink.adds)
	}
	if got := sink.adds[0].Order.OrderID; got != "0xa" {
		t.Errorf("added order id = %s, want 0xa", got)
	}
}

func TestCatchUpDispatchesLastEventBlock(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{streams: []*Stream{
		cannedStream(nil,
			openEventFrame(t, "0xa", 7),
			tradeEventFrame(t, "0xa", 9),
		),
	}}
	sink := &fakeSink{}

	err := startIndexer(t, opener, &fakeProvider{height: 50}, sink, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start = %v, want context.Canceled", err)
	}

	if len(sink.dispatches) != 1 || sink.dispatches[0] != 9 {
		t.Errorf("dispatches = %v, want [9]", sink.dispatches)
	}
	if len(sink.adds) != 2 {
		t.Fatalf("adds = %d, want 2", len(sink.adds))
	}
	if sink.adds[0].Kind != dispatch.UpdateOpenOrder || sink.adds[1].Kind != dispatch.UpdateTrade {
		t.Errorf("add kinds = %d/%d, want open then trade", sink.adds[0].Kind, sink.adds[1].Kind)
	}

	// Catch-up ends at the chain head, so the subscribe starts above it.
	last := opener.requests[len(opener.requests)-1]
	if last.FromBlock != 51 || !last.ToBlock.subscribe {
		t.Errorf("subscribe request = %+v, want from 51", last)
	}
}

func TestCatchUpSkipsUndecodableRecords(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{streams: []*Stream{
		cannedStream(errors.New("stream reset"),
			[]byte(`{"block_number": nope`),
			openEventFrame(t, "0xa", 12),
		),
	}}
	sink := &fakeSink{}

	err := startIndexer(t, opener, &fakeProvider{height: 20}, sink, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start = %v, want context.Canceled", err)
	}

	// The bad record is skipped, the good one lands, and the mid-batch
	// stream error still dispatches what was collected.
	if len(sink.adds) != 1 {
		t.Fatalf("adds = %d, want 1", len(sink.adds))
	}
	if len(sink.dispatches) == 0 || sink.dispatches[0] != 12 {
		t.Errorf("dispatches = %v, want [12, ...]", sink.dispatches)
	}
}

func TestListenReconnectsAfterStreamEnd(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{streams: []*Stream{
		cannedStream(errors.New("broken pipe"), tradeEventFrame(t, "0xa", 101)),
		cannedStream(nil),
	}}
	sink := &fakeSink{}

	// Cursor equals the chain head, so catch-up is a no-op.
	err := startIndexer(t, opener, &fakeProvider{height: 100}, sink, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start = %v, want context.Canceled", err)
	}

	if len(opener.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(opener.requests))
	}
	if opener.requests[0].FromBlock != 101 || !opener.requests[0].ToBlock.subscribe {
		t.Errorf("first subscribe = %+v, want from 101", opener.requests[0])
	}
	// The reconnect resumes above the last processed event.
	if opener.requests[1].FromBlock != 102 {
		t.Errorf("second subscribe from %d, want 102", opener.requests[1].FromBlock)
	}
	if opener.requests[2].FromBlock != 102 {
		t.Errorf("third subscribe from %d, want 102", opener.requests[2].FromBlock)
	}

	if len(sink.dispatches) != 1 || sink.dispatches[0] != 101 {
		t.Errorf("dispatches = %v, want [101]", sink.dispatches)
	}
}

func TestStartProviderFailure(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{}
	sink := &fakeSink{}
	provider := &fakeProvider{err: errors.New("graphql unreachable")}

	ctx := context.Background()
	ix := NewIndexer(opener, provider, sink, testMarketID, "FUEL", testLogger())
	err := ix.Start(ctx, 10)
	if err == nil || !strings.Contains(err.Error(), "latest block height") {
		t.Fatalf("Start = %v, want latest block height error", err)
	}
	if len(sink.prunes) != 0 {
		t.Errorf("prunes = %v, want none before provider success", sink.prunes)
	}
}

func TestHandleEventRouting(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	ix := NewIndexer(nil, nil, sink, testMarketID, "FUEL", testLogger())

	open := baseEvent()
	open.EventType = strPtr("Open")
	open.OrderType = strPtr("Sell")
	ix.handleEvent(open)

	incompleteOpen := baseEvent()
	incompleteOpen.EventType = strPtr("Open")
	ix.handleEvent(incompleteOpen) // no order_type, dropped

	trade := baseEvent()
	trade.EventType = strPtr("Trade")
	ix.handleEvent(trade)

	cancel := baseEvent()
	cancel.EventType = strPtr("Cancel")
	ix.handleEvent(cancel)

	unknown := baseEvent()
	unknown.EventType = strPtr("Settle")
	ix.handleEvent(unknown)

	untyped := baseEvent()
	ix.handleEvent(untyped)

	if len(sink.adds) != 3 {
		t.Fatalf("adds = %d, want 3", len(sink.adds))
	}
	if sink.adds[0].Kind != dispatch.UpdateOpenOrder {
		t.Errorf("first add kind = %d, want open order", sink.adds[0].Kind)
	}
	if sink.adds[1].Kind != dispatch.UpdateTrade {
		t.Errorf("second add kind = %d, want trade", sink.adds[1].Kind)
	}
	if sink.adds[2].Kind != dispatch.UpdateCancelOrder || sink.adds[2].OrderID != "0xorder" {
		t.Errorf("third add = %+v, want cancel 0xorder", sink.adds[2])
	}
}

func TestNextBackoff(t *testing.T) {
	t.Parallel()

	got := []time.Duration{initialBackoff}
	for i := 0; i < 6; i++ {
		got = append(got, nextBackoff(got[len(got)-1]))
	}
	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 32 * time.Second,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("backoff step %d = %v, want %v", i, got[i], want[i])
		}
	}
}
