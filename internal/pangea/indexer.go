package pangea

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sparker/internal/dispatch"
)

// batchSize bounds one historical catch-up request.
const batchSize = 100_000

const (
	initialBackoff = time.Second
	maxBackoff     = 32 * time.Second
)

// ChainProvider reports the current chain head.
type ChainProvider interface {
	LatestBlockHeight(ctx context.Context) (int64, error)
}

// OperationSink receives the mutations and control marks the indexer emits.
// Sends must not block; the dispatch queue is unbounded.
type OperationSink interface {
	Add(update dispatch.Update)
	Dispatch(block int64)
	Prune(fromBlock int64)
}

// StreamOpener opens one upstream stream per call.
type StreamOpener interface {
	Stream(ctx context.Context, req StreamRequest) (*Stream, error)
}

// Indexer drives one market: prune, historical catch-up, then the live
// subscription.
type Indexer struct {
	client   StreamOpener
	provider ChainProvider
	sink     OperationSink
	marketID string
	chain    string
	log      *slog.Logger
}

func NewIndexer(client StreamOpener, provider ChainProvider, sink OperationSink, marketID, chain string, logger *slog.Logger) *Indexer {
	return &Indexer{
		client:   client,
		provider: provider,
		sink:     sink,
		marketID: marketID,
		chain:    chain,
		log:      logger.With("component", "indexer", "market_id", marketID),
	}
}

// Start prunes rows at or above the cursor, replays history up to the
// current chain head, then follows the live stream until ctx is cancelled.
// The prune threshold and the catch-up start are the same block on purpose:
// rows from blocks the upstream may have reorganized are dropped and
// replayed idempotently.
func (ix *Indexer) Start(ctx context.Context, latestProcessedBlock int64) error {
	latestBlock, err := ix.provider.LatestBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("latest block height: %w", err)
	}

	ix.log.Info("pruning rows at or above cursor", "from_block", latestProcessedBlock)
	ix.sink.Prune(latestProcessedBlock)

	ix.log.Info("catching up", "from_block", latestProcessedBlock, "to_block", latestBlock)
	cursor := ix.catchUp(ctx, latestProcessedBlock, latestBlock)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	ix.log.Info("listening for new events", "from_block", cursor)
	ix.listenEvents(ctx, cursor)
	return ctx.Err()
}

// catchUp replays [from, to] in batches of batchSize blocks and returns the
// next cursor. A failed request retries the same batch with backoff; a
// stream that breaks mid-batch dispatches what was collected and the loop
// moves to the next batch.
func (ix *Indexer) catchUp(ctx context.Context, latestProcessedBlock, toBlock int64) int64 {
	backoff := initialBackoff
	for latestProcessedBlock < toBlock && ctx.Err() == nil {
		batchEnd := latestProcessedBlock + batchSize
		if batchEnd > toBlock {
			batchEnd = toBlock
		}

		stream, err := ix.client.Stream(ctx, StreamRequest{
			Chains:     []string{ix.chain},
			FromBlock:  latestProcessedBlock,
			ToBlock:    Exact(batchEnd),
			MarketIDIn: []string{ix.marketID},
			Format:     formatJSONStream,
		})
		if err != nil {
			ix.log.Error("historical stream request failed", "error", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				break
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = initialBackoff

		for frame := range stream.Frames() {
			event, err := decodeEvent(frame)
			if err != nil {
				ix.log.Error("skipping undecodable event", "error", err)
				continue
			}
			latestProcessedBlock = event.BlockNumber
			ix.handleEvent(event)
		}
		if err := stream.Err(); err != nil {
			ix.log.Error("error in the stream of historical events", "error", err)
		}

		ix.sink.Dispatch(latestProcessedBlock)
		ix.log.Debug("processed batch", "latest_processed_block", latestProcessedBlock)
		latestProcessedBlock = batchEnd
	}
	return latestProcessedBlock
}

// listenEvents follows the live stream, dispatching after every event so
// the cursor tracks the head closely. It reconnects forever with
// exponential backoff; a successful subscribe resets the delay.
func (ix *Indexer) listenEvents(ctx context.Context, latestProcessedBlock int64) {
	backoff := initialBackoff
	for ctx.Err() == nil {
		stream, err := ix.client.Stream(ctx, StreamRequest{
			Chains:     []string{ix.chain},
			FromBlock:  latestProcessedBlock + 1,
			ToBlock:    Subscribe(),
			MarketIDIn: []string{ix.marketID},
			Format:     formatJSONStream,
		})
		if err != nil {
			ix.log.Error("subscribe request failed", "error", err)
		} else {
			backoff = initialBackoff

			for frame := range stream.Frames() {
				event, err := decodeEvent(frame)
				if err != nil {
					ix.log.Error("skipping undecodable event", "error", err)
					continue
				}
				latestProcessedBlock = event.BlockNumber
				ix.handleEvent(event)
				ix.sink.Dispatch(latestProcessedBlock)
			}
			if err := stream.Err(); err != nil {
				ix.log.Error("error in the stream of new events", "error", err)
			}
		}

		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
		ix.log.Debug("reconnecting to the live stream", "from_block", latestProcessedBlock+1)
	}
}

// handleEvent turns one decoded event into a pending update. Events without
// a type carry no order mutation and are ignored.
func (ix *Indexer) handleEvent(event RawEvent) {
	if event.EventType == nil {
		return
	}
	switch *event.EventType {
	case eventTypeOpen:
		if order, ok := event.BuildOrder(); ok {
			ix.sink.Add(dispatch.OpenOrder(order))
		}
	case eventTypeTrade:
		if trade, ok := event.BuildTrade(); ok {
			ix.sink.Add(dispatch.Trade(trade))
		}
	case eventTypeCancel:
		ix.sink.Add(dispatch.CancelOrder(event.OrderID))
	default:
		ix.log.Error("UNKNOWN_EVENT_TYPE", "event_type", *event.EventType)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleep waits for d unless ctx ends first, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
