// Package dispatch buffers per-market mutations produced by the indexer and
// applies them to the database in block-sized batches.
package dispatch

import "sparker/pkg/types"

// UpdateKind tags the variant carried by an Update.
type UpdateKind int

const (
	UpdateOpenOrder UpdateKind = iota
	UpdateTrade
	UpdateCancelOrder
)

// Update is one pending mutation: a new order, a fill against an existing
// order, or a cancellation. Exactly the field matching Kind is set.
type Update struct {
	Kind    UpdateKind
	Order   types.Order
	Trade   types.Trade
	OrderID string
}

// OpenOrder wraps a freshly decoded order for insertion.
func OpenOrder(order types.Order) Update {
	return Update{Kind: UpdateOpenOrder, Order: order}
}

// Trade wraps a fill to be applied to its referenced order.
func Trade(trade types.Trade) Update {
	return Update{Kind: UpdateTrade, Trade: trade}
}

// CancelOrder marks the order with the given id for cancellation.
func CancelOrder(orderID string) Update {
	return Update{Kind: UpdateCancelOrder, OrderID: orderID}
}

type opKind int

const (
	opAdd opKind = iota
	opDispatch
	opPrune
)

// operation is a control message on the indexer → dispatcher queue. block
// carries the dispatch block for opDispatch and the prune threshold for
// opPrune.
type operation struct {
	kind   opKind
	update Update
	block  int64
}
