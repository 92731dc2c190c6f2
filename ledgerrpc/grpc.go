package ledgerrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "xdao.stakeledger.v1.LedgerQuery"

// LedgerQueryServer is the server API for the LedgerQuery service.
//
// Messages are protobuf well-known types, so no protoc/codegen step is needed.
//
// The service is described in ledger_query.proto next to this file.
type LedgerQueryServer interface {
	Balance(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	AmountStaked(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Members(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	State(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Audit(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// UnimplementedLedgerQueryServer can be embedded to have forward compatible implementations.
type UnimplementedLedgerQueryServer struct{}

func (UnimplementedLedgerQueryServer) Balance(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Balance not implemented")
}
func (UnimplementedLedgerQueryServer) AmountStaked(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method AmountStaked not implemented")
}
func (UnimplementedLedgerQueryServer) Members(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Members not implemented")
}
func (UnimplementedLedgerQueryServer) State(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method State not implemented")
}
func (UnimplementedLedgerQueryServer) Audit(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Audit not implemented")
}

// RegisterLedgerQueryServer registers the service on a gRPC server.
func RegisterLedgerQueryServer(s grpc.ServiceRegistrar, srv LedgerQueryServer) {
	s.RegisterService(&LedgerQuery_ServiceDesc, srv)
}

// LedgerQueryClient is the client API for the LedgerQuery service.
type LedgerQueryClient interface {
	Balance(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	AmountStaked(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Members(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	State(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Audit(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type ledgerQueryClient struct{ cc grpc.ClientConnInterface }

func NewLedgerQueryClient(cc grpc.ClientConnInterface) LedgerQueryClient {
	return &ledgerQueryClient{cc: cc}
}

func (c *ledgerQueryClient) Balance(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Balance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerQueryClient) AmountStaked(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AmountStaked", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerQueryClient) Members(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Members", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerQueryClient) State(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/State", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerQueryClient) Audit(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Audit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler adapts one typed server method to a grpc.MethodDesc handler.
func unaryHandler[Req any, Resp any](method string, newReq func() *Req, call func(LedgerQueryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerQueryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerQueryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerQuery_ServiceDesc is the grpc.ServiceDesc for the LedgerQuery service.
var LedgerQuery_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LedgerQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Balance", Handler: unaryHandler("Balance", newEmpty, LedgerQueryServer.Balance)},
		{MethodName: "AmountStaked", Handler: unaryHandler("AmountStaked", newString, LedgerQueryServer.AmountStaked)},
		{MethodName: "Members", Handler: unaryHandler("Members", newEmpty, LedgerQueryServer.Members)},
		{MethodName: "State", Handler: unaryHandler("State", newEmpty, LedgerQueryServer.State)},
		{MethodName: "Audit", Handler: unaryHandler("Audit", newEmpty, LedgerQueryServer.Audit)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger_query.proto",
}

func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
