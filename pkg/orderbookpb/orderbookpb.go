// Package orderbookpb defines the wire contract of the orderbook.api.Orderbook
// gRPC service.
//
// The service ships without generated protobuf bindings. Messages are plain
// structs framed by a JSON codec registered under the "json" content subtype
// (codec.go), and the service itself is described by a hand-written
// grpc.ServiceDesc (service.go). Clients built with NewOrderbookClient select
// the codec on every call; foreign clients interoperate by speaking
// application/grpc+json against the method paths below.
package orderbookpb

// OrderType is the side of an order. Values are wire contract.
type OrderType int32

const (
	OrderTypeBuy  OrderType = 0
	OrderTypeSell OrderType = 1
)

// OrderStatus is the lifecycle state of an order. Values are wire contract.
type OrderStatus int32

const (
	OrderStatusNew              OrderStatus = 0
	OrderStatusPartiallyMatched OrderStatus = 1
	OrderStatusMatched          OrderStatus = 2
	OrderStatusCancelled        OrderStatus = 3
	OrderStatusFailed           OrderStatus = 4
)

// LimitType is the time-in-force of the order behind a trade. Values are wire
// contract.
type LimitType int32

const (
	LimitTypeGTC LimitType = 0
	LimitTypeIOC LimitType = 1
	LimitTypeFOK LimitType = 2
	LimitTypeMKT LimitType = 3
)

// Order is one row of the book as served over the wire. Timestamp is unix
// seconds.
type Order struct {
	TxID        string      `json:"tx_id"`
	OrderID     string      `json:"order_id"`
	OrderType   OrderType   `json:"order_type"`
	User        string      `json:"user"`
	Asset       string      `json:"asset"`
	Amount      uint64      `json:"amount"`
	Price       uint64      `json:"price"`
	Status      OrderStatus `json:"status"`
	BlockNumber int64       `json:"block_number"`
	Timestamp   uint64      `json:"timestamp"`
	MarketID    string      `json:"market_id"`
}

// Trade is one fill as served over the wire. Timestamp is unix seconds.
type Trade struct {
	TxID        string    `json:"tx_id"`
	TradeID     string    `json:"trade_id"`
	OrderID     string    `json:"order_id"`
	LimitType   LimitType `json:"limit_type"`
	User        string    `json:"user"`
	Size        uint64    `json:"size"`
	Price       uint64    `json:"price"`
	BlockNumber int64     `json:"block_number"`
	Timestamp   uint64    `json:"timestamp"`
	MarketID    string    `json:"market_id"`
}

// OrdersRequest selects orders of one market. A zero Limit falls back to the
// server default. OrderType narrows to one side of the book and is required
// for UserNE to take effect.
type OrdersRequest struct {
	MarketID  string     `json:"market_id"`
	Limit     uint64     `json:"limit,omitempty"`
	OrderType *OrderType `json:"order_type,omitempty"`
	UserNE    *string    `json:"user_ne,omitempty"`
}

type OrdersResponse struct {
	Orders []*Order `json:"orders"`
}

// SpreadRequest asks for the top of the book of one market, optionally
// ignoring one user's own orders.
type SpreadRequest struct {
	MarketID string  `json:"market_id"`
	UserNE   *string `json:"user_ne,omitempty"`
}

// SpreadResponse carries the top of the book. Either side is nil when that
// side is empty.
type SpreadResponse struct {
	BestBid *Order `json:"best_bid,omitempty"`
	BestAsk *Order `json:"best_ask,omitempty"`
}

// TradesRequest selects recent trades of one market, newest first. A zero
// Limit falls back to the server default.
type TradesRequest struct {
	MarketID string `json:"market_id"`
	Limit    uint64 `json:"limit,omitempty"`
}

type TradesResponse struct {
	Trades []*Trade `json:"trades"`
}

// OrderRequest opens an order update subscription for one market. User, when
// set, narrows the feed to that user's orders.
type OrderRequest struct {
	MarketID string  `json:"market_id"`
	User     *string `json:"user,omitempty"`
}

// OrderResponse is one element of the order update stream.
type OrderResponse struct {
	Order *Order `json:"order,omitempty"`
}

// TradeRequest opens a trade subscription for one market.
type TradeRequest struct {
	MarketID string  `json:"market_id"`
	User     *string `json:"user,omitempty"`
}

// TradeResponse is one element of the trade stream.
type TradeResponse struct {
	Trade *Trade `json:"trade,omitempty"`
}
