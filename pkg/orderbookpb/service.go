package orderbookpb

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "orderbook.api.Orderbook"

const (
	methodListOrders            = "/" + ServiceName + "/ListOrders"
	methodSpread                = "/" + ServiceName + "/Spread"
	methodListTrades            = "/" + ServiceName + "/ListTrades"
	methodSubscribeOrderUpdates = "/" + ServiceName + "/SubscribeOrderUpdates"
	methodSubscribeTrades       = "/" + ServiceName + "/SubscribeTrades"
)

// OrderbookServer is the server API of the Orderbook service.
type OrderbookServer interface {
	// ListOrders returns active orders of a market, newest first.
	ListOrders(ctx context.Context, req *OrdersRequest) (*OrdersResponse, error)
	// Spread returns the top of the book of a market.
	Spread(ctx context.Context, req *SpreadRequest) (*SpreadResponse, error)
	// ListTrades returns recent trades of a market, newest first.
	ListTrades(ctx context.Context, req *TradesRequest) (*TradesResponse, error)
	// SubscribeOrderUpdates streams every order mutation of a market as it is
	// indexed.
	SubscribeOrderUpdates(req *OrderRequest, stream OrderUpdatesStream) error
	// SubscribeTrades streams trades of a market.
	SubscribeTrades(req *TradeRequest, stream TradesStream) error
}

// OrderUpdatesStream is the server side send stream of SubscribeOrderUpdates.
type OrderUpdatesStream interface {
	Send(*OrderResponse) error
	grpc.ServerStream
}

// TradesStream is the server side send stream of SubscribeTrades.
type TradesStream interface {
	Send(*TradeResponse) error
	grpc.ServerStream
}

// RegisterOrderbookServer registers srv with the gRPC server s under
// ServiceName.
func RegisterOrderbookServer(s grpc.ServiceRegistrar, srv OrderbookServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc wires the Orderbook methods into grpc-go. Hand-written
// counterpart of what protoc-gen-go-grpc would emit.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderbookServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListOrders", Handler: listOrdersHandler},
		{MethodName: "Spread", Handler: spreadHandler},
		{MethodName: "ListTrades", Handler: listTradesHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SubscribeOrderUpdates", Handler: subscribeOrderUpdatesHandler, ServerStreams: true},
		{StreamName: "SubscribeTrades", Handler: subscribeTradesHandler, ServerStreams: true},
	},
}

func listOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(OrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderbookServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListOrders}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderbookServer).ListOrders(ctx, req.(*OrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func spreadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SpreadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderbookServer).Spread(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSpread}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderbookServer).Spread(ctx, req.(*SpreadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listTradesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TradesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderbookServer).ListTrades(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListTrades}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderbookServer).ListTrades(ctx, req.(*TradesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeOrderUpdatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(OrderRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(OrderbookServer).SubscribeOrderUpdates(in, &orderUpdatesStream{stream})
}

type orderUpdatesStream struct {
	grpc.ServerStream
}

func (s *orderUpdatesStream) Send(m *OrderResponse) error {
	return s.ServerStream.SendMsg(m)
}

func subscribeTradesHandler(srv any, stream grpc.ServerStream) error {
	in := new(TradeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(OrderbookServer).SubscribeTrades(in, &tradesStream{stream})
}

type tradesStream struct {
	grpc.ServerStream
}

func (s *tradesStream) Send(m *TradeResponse) error {
	return s.ServerStream.SendMsg(m)
}
