package orderbookpb

import (
	"context"

	"google.golang.org/grpc"
)

// OrderbookClient is the client API of the Orderbook service.
type OrderbookClient interface {
	ListOrders(ctx context.Context, in *OrdersRequest, opts ...grpc.CallOption) (*OrdersResponse, error)
	Spread(ctx context.Context, in *SpreadRequest, opts ...grpc.CallOption) (*SpreadResponse, error)
	ListTrades(ctx context.Context, in *TradesRequest, opts ...grpc.CallOption) (*TradesResponse, error)
	SubscribeOrderUpdates(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (OrderUpdatesReceiver, error)
	SubscribeTrades(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (TradesReceiver, error)
}

// OrderUpdatesReceiver is the client side receive stream of
// SubscribeOrderUpdates.
type OrderUpdatesReceiver interface {
	Recv() (*OrderResponse, error)
	grpc.ClientStream
}

// TradesReceiver is the client side receive stream of SubscribeTrades.
type TradesReceiver interface {
	Recv() (*TradeResponse, error)
	grpc.ClientStream
}

type orderbookClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderbookClient returns a client speaking JSON-framed gRPC over cc.
// Every call carries the codec's content subtype; later options can override
// per call.
func NewOrderbookClient(cc grpc.ClientConnInterface) OrderbookClient {
	return &orderbookClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *orderbookClient) ListOrders(ctx context.Context, in *OrdersRequest, opts ...grpc.CallOption) (*OrdersResponse, error) {
	out := new(OrdersResponse)
	if err := c.cc.Invoke(ctx, methodListOrders, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderbookClient) Spread(ctx context.Context, in *SpreadRequest, opts ...grpc.CallOption) (*SpreadResponse, error) {
	out := new(SpreadResponse)
	if err := c.cc.Invoke(ctx, methodSpread, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderbookClient) ListTrades(ctx context.Context, in *TradesRequest, opts ...grpc.CallOption) (*TradesResponse, error) {
	out := new(TradesResponse)
	if err := c.cc.Invoke(ctx, methodListTrades, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderbookClient) SubscribeOrderUpdates(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (OrderUpdatesReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], methodSubscribeOrderUpdates, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &orderUpdatesReceiver{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type orderUpdatesReceiver struct {
	grpc.ClientStream
}

func (x *orderUpdatesReceiver) Recv() (*OrderResponse, error) {
	m := new(OrderResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *orderbookClient) SubscribeTrades(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (TradesReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[1], methodSubscribeTrades, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &tradesReceiver{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type tradesReceiver struct {
	grpc.ClientStream
}

func (x *tradesReceiver) Recv() (*TradeResponse, error) {
	m := new(TradeResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
