package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{time.Second, 2 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{16 * time.Second, 32 * time.Second},
		{32 * time.Second, 32 * time.Second},
	}
	for _, tt := range tests {
		if got := nextBackoff(tt.in); got != tt.want {
			t.Errorf("nextBackoff(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestListenerDeliversNotifications needs a reachable Postgres. Notifications
// published before LISTEN is up are lost, so the first payload is resent until
// it arrives.
func TestListenerDeliversNotifications(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewBroadcast(testLogger())
	listener := NewListener(dsn, hub, testLogger())
	go func() { _ = listener.Run(ctx) }()

	sub := hub.Subscribe()
	defer sub.Close()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close(context.Background())

	notify := func(payload string) {
		t.Helper()
		if _, err := conn.Exec(ctx, "SELECT pg_notify($1, $2)", channelName, payload); err != nil {
			t.Fatalf("pg_notify: %v", err)
		}
	}

	first := `{"tx_id":"0xtx","order_id":"0xnotify-1","order_type":"Buy","user":"0xuser","asset":"0xasset","amount":5,"price":100,"status":"New","block_number":9,"timestamp":"2024-05-01T10:00:00.123456","market_id":"0xmarket"}`

	deadline := time.After(10 * time.Second)
	received := false
	for !received {
		notify(first)
		select {
		case order := <-sub.Updates():
			if order.OrderID != "0xnotify-1" {
				t.Errorf("order_id = %s, want 0xnotify-1", order.OrderID)
			}
			want := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)
			if !order.Timestamp.Equal(want) {
				t.Errorf("timestamp = %v, want %v", order.Timestamp, want)
			}
			received = true
		case <-time.After(200 * time.Millisecond):
			// LISTEN may not be established yet.
		case <-deadline:
			t.Fatal("no notification received")
		}
	}

	// A malformed payload is logged and skipped; the loop keeps going.
	notify(`{broken`)
	second := `{"tx_id":"0xtx","order_id":"0xnotify-2","order_type":"Sell","user":"0xuser","asset":"0xasset","amount":7,"price":90,"status":"Cancelled","block_number":10,"timestamp":"2024-05-01T10:00:01","market_id":"0xmarket"}`
	notify(second)

	select {
	case order := <-sub.Updates():
		if order.OrderID != "0xnotify-2" {
			t.Errorf("order_id = %s, want 0xnotify-2", order.OrderID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener stopped after a malformed payload")
	}
}
