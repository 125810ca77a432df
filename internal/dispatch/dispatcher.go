package dispatch

import (
	"context"
	"log/slog"

	"sparker/pkg/types"
)

// OrderStore is the slice of the order repository the dispatcher mutates.
type OrderStore interface {
	FindByID(ctx context.Context, orderID string) (*types.Order, error)
	InsertMany(ctx context.Context, orders []types.Order) error
	Update(ctx context.Context, upd types.UpdateOrder) (*types.Order, error)
	DeleteMany(ctx context.Context, marketID string, fromBlock int64) (int64, error)
}

// TradeStore is the slice of the trade repository the dispatcher mutates.
type TradeStore interface {
	InsertMany(ctx context.Context, trades []types.Trade) error
	DeleteMany(ctx context.Context, marketID string, fromBlock int64) (int64, error)
}

// StateStore records the per-market cursor.
type StateStore interface {
	UpsertLatestProcessedBlock(ctx context.Context, block int64, marketID string) error
}

// Dispatcher owns the pending buffer for one market and applies it batch by
// batch. Repository failures are logged and never abort the rest of a batch;
// events can be replayed from upstream.
type Dispatcher struct {
	marketID string
	orders   OrderStore
	trades   TradeStore
	state    StateStore
	log      *slog.Logger

	pending []Update
}

func NewDispatcher(marketID string, orders OrderStore, trades TradeStore, state StateStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		marketID: marketID,
		orders:   orders,
		trades:   trades,
		state:    state,
		log:      logger.With("component", "dispatcher", "market_id", marketID),
	}
}

// Run consumes the queue until it is closed or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, queue *Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		case op, ok := <-queue.out:
			if !ok {
				return
			}
			d.handle(ctx, op)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, op operation) {
	switch op.kind {
	case opAdd:
		d.pending = append(d.pending, op.update)
	case opDispatch:
		d.dispatch(ctx, op.block)
	case opPrune:
		d.prune(ctx, op.block)
	}
}

// dispatch applies the pending buffer in three strict phases. Opens land
// first so same-block trades find their order; cancels land last so a
// same-block cancel never masks a fill. The cursor upsert runs even when a
// phase failed.
func (d *Dispatcher) dispatch(ctx context.Context, block int64) {
	var (
		opens   []types.Order
		trades  []types.Trade
		cancels []string
	)
	for _, u := range d.pending {
		switch u.Kind {
		case UpdateOpenOrder:
			opens = append(opens, u.Order)
		case UpdateTrade:
			trades = append(trades, u.Trade)
		case UpdateCancelOrder:
			cancels = append(cancels, u.OrderID)
		}
	}

	d.processOpenOrders(ctx, opens)
	d.processTrades(ctx, trades)
	d.processCancelOrders(ctx, cancels)

	d.pending = d.pending[:0]

	if err := d.state.UpsertLatestProcessedBlock(ctx, block, d.marketID); err != nil {
		d.log.Error("UPSERT_LATEST_PROCESSED_BLOCK_ERROR", "error", err)
	}
}

// prune deletes trades before orders so the trade → order foreign key holds.
func (d *Dispatcher) prune(ctx context.Context, fromBlock int64) {
	if _, err := d.trades.DeleteMany(ctx, d.marketID, fromBlock); err != nil {
		d.log.Error("PRUNE_TRADES_ERROR", "error", err)
	}
	if _, err := d.orders.DeleteMany(ctx, d.marketID, fromBlock); err != nil {
		d.log.Error("PRUNE_ORDERS_ERROR", "error", err)
	}
}

func (d *Dispatcher) processOpenOrders(ctx context.Context, orders []types.Order) {
	if len(orders) == 0 {
		return
	}
	if err := d.orders.InsertMany(ctx, orders); err != nil {
		d.log.Error("CREATE_ORDERS_ERROR", "error", err)
	}
}

// processTrades updates each referenced order and then inserts the trades
// whose order exists. A trade against an unknown order is logged and
// dropped; inserting it would break the foreign key.
func (d *Dispatcher) processTrades(ctx context.Context, trades []types.Trade) {
	if len(trades) == 0 {
		return
	}
	insertable := make([]types.Trade, 0, len(trades))
	for _, trade := range trades {
		order, err := d.orders.FindByID(ctx, trade.OrderID)
		if err != nil {
			d.log.Error("FIND_ORDER_BY_ID_ERROR", "error", err)
			continue
		}
		if order == nil {
			d.log.Error("ORDER_NOT_FOUND", "order_id", trade.OrderID)
			continue
		}

		status, amount := fillResult(*order, trade)
		if _, err := d.orders.Update(ctx, types.UpdateOrder{
			OrderID: trade.OrderID,
			Amount:  amount,
			Status:  status,
		}); err != nil {
			d.log.Error("UPDATE_ORDER_ERROR", "error", err)
		}
		insertable = append(insertable, trade)
	}

	if err := d.trades.InsertMany(ctx, insertable); err != nil {
		d.log.Error("CREATE_TRADES_ERROR", "error", err)
	}
}

func (d *Dispatcher) processCancelOrders(ctx context.Context, orderIDs []string) {
	for _, orderID := range orderIDs {
		if _, err := d.orders.Update(ctx, types.UpdateOrder{
			OrderID: orderID,
			Status:  types.OrderStatusCancelled,
		}); err != nil {
			d.log.Error("CANCEL_ORDER_ERROR", "error", err)
		}
	}
}

// fillResult decides how a trade settles against its order. GTC and MKT
// orders keep resting with the remainder while strictly more than the trade
// size is open; everything else, including an exact fill, is a full match
// with the stored amount left untouched.
func fillResult(order types.Order, trade types.Trade) (types.OrderStatus, *uint64) {
	switch trade.LimitType {
	case types.LimitTypeGTC, types.LimitTypeMKT:
		if order.Amount > trade.Size {
			remaining := order.Amount - trade.Size
			return types.OrderStatusPartiallyMatched, &remaining
		}
	}
	return types.OrderStatusMatched, nil
}
