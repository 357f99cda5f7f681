package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "papertrade.v1.TradingService"

// TradingServer is the server API for the TradingService service.
// Every request and response is a google.protobuf.Struct.
type TradingServer interface {
	RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BuyStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SellStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarket(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(TradingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes the TradingService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradingServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("RegisterUser", TradingServer.RegisterUser),
		unaryMethod("BuyStock", TradingServer.BuyStock),
		unaryMethod("SellStock", TradingServer.SellStock),
		unaryMethod("GetPortfolio", TradingServer.GetPortfolio),
		unaryMethod("GetMarket", TradingServer.GetMarket),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "papertrade/v1/trading.proto",
}

// RegisterTradingServer registers srv on s
func RegisterTradingServer(s grpc.ServiceRegistrar, srv TradingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryMethod(name string, call methodFunc) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TradingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TradingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the TradingService over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and returns the decoded response
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
