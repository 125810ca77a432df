// Package notify moves order-row changes from Postgres to live subscribers:
// a LISTEN loop on the trigger channel and an in-process broadcast hub.
package notify

import (
	"log/slog"
	"sync"

	"sparker/pkg/types"
)

// subscriberBuffer bounds how far a subscriber may lag before losing
// updates.
const subscriberBuffer = 100

// Broadcast fans order updates out to subscribers. Publishing never blocks:
// when a subscriber's buffer is full its oldest update is dropped, so slow
// readers lose history rather than stall the listener.
type Broadcast struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

func NewBroadcast(logger *slog.Logger) *Broadcast {
	return &Broadcast{
		subs:   make(map[*Subscription]struct{}),
		logger: logger.With("component", "broadcast"),
	}
}

// Subscription is one receiver on the broadcast. Close it when done or the
// hub keeps pushing into its buffer.
type Subscription struct {
	ch        chan types.Order
	hub       *Broadcast
	closeOnce sync.Once
}

// Subscribe registers a new receiver.
func (b *Broadcast) Subscribe() *Subscription {
	sub := &Subscription{
		ch:  make(chan types.Order, subscriberBuffer),
		hub: b,
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Info("subscriber connected", "count", count)
	return sub
}

// Subscribers reports how many subscriptions are attached.
func (b *Broadcast) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers the order to every subscriber, evicting the oldest
// buffered update of any subscriber that is full.
func (b *Broadcast) Publish(order types.Order) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- order:
			continue
		default:
		}

		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- order:
		default:
		}
	}
}

// Updates returns the subscriber's receive channel. It closes when the
// subscription is closed.
func (s *Subscription) Updates() <-chan types.Order { return s.ch }

// Close detaches the subscription from the hub and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		count := len(s.hub.subs)
		s.hub.mu.Unlock()

		close(s.ch)
		s.hub.logger.Info("subscriber disconnected", "count", count)
	})
}
