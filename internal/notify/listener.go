package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"sparker/pkg/types"
)

// channelName is the NOTIFY channel the order_update_trigger publishes on.
const channelName = "order_updates"

const (
	initialBackoff = time.Second
	maxBackoff     = 32 * time.Second
)

// Listener holds a dedicated Postgres connection subscribed to order-row
// changes and republishes each parsed row to the broadcast.
type Listener struct {
	databaseURL string
	broadcast   *Broadcast
	log         *slog.Logger
}

func NewListener(databaseURL string, broadcast *Broadcast, logger *slog.Logger) *Listener {
	return &Listener{
		databaseURL: databaseURL,
		broadcast:   broadcast,
		log:         logger.With("component", "listener"),
	}
}

// Run listens until ctx is cancelled, reconnecting with backoff when the
// connection drops. A successful LISTEN resets the delay.
func (l *Listener) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		setup, err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if setup {
			backoff = initialBackoff
		}
		l.log.Error("listener disconnected", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

// listen connects, subscribes, and consumes notifications until the
// connection fails. setup reports whether the LISTEN was established, so
// the caller can reset its backoff.
func (l *Listener) listen(ctx context.Context) (setup bool, err error) {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		return false, fmt.Errorf("listen %s: %w", channelName, err)
	}
	l.log.Info("listening for order updates", "channel", channelName)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait for notification: %w", err)
		}

		order, err := types.OrderFromPayload(notification.Payload)
		if err != nil {
			l.log.Error("PARSE_ORDER_ERROR", "error", err, "payload", notification.Payload)
			continue
		}
		l.broadcast.Publish(order)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
