package provider

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service wfst.AlgorithmService. Every method takes a BytesValue holding an
// archive of operands and returns a BytesValue holding one binary automaton.

const (
	AlgorithmService_ArcSort_FullMethodName      = "/wfst.AlgorithmService/ArcSort"
	AlgorithmService_Connect_FullMethodName      = "/wfst.AlgorithmService/Connect"
	AlgorithmService_Determinize_FullMethodName  = "/wfst.AlgorithmService/Determinize"
	AlgorithmService_Minimize_FullMethodName     = "/wfst.AlgorithmService/Minimize"
	AlgorithmService_Compose_FullMethodName      = "/wfst.AlgorithmService/Compose"
	AlgorithmService_ShortestPath_FullMethodName = "/wfst.AlgorithmService/ShortestPath"
)

// #region client
type AlgorithmServiceClient interface {
	ArcSort(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Connect(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Determinize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Minimize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Compose(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ShortestPath(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type algorithmServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAlgorithmServiceClient(cc grpc.ClientConnInterface) AlgorithmServiceClient {
	return &algorithmServiceClient{cc}
}

func (c *algorithmServiceClient) invoke(ctx context.Context, method string, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *algorithmServiceClient) ArcSort(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, AlgorithmService_ArcSort_FullMethodName, in, opts...)
}

func (c *algorithmServiceClient) Connect(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, AlgorithmService_Connect_FullMethodName, in, opts...)
}

func (c *algorithmServiceClient) Determinize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, AlgorithmService_Determinize_FullMethodName, in, opts...)
}

func (c *algorithmServiceClient) Minimize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, AlgorithmService_Minimize_FullMethodName, in, opts...)
}

func (c *algorithmServiceClient) Compose(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, AlgorithmService_Compose_FullMethodName, in, opts...)
}

func (c *algorithmServiceClient) ShortestPath(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, AlgorithmService_ShortestPath_FullMethodName, in, opts...)
}

// #endregion client

// #region server
type AlgorithmServiceServer interface {
	ArcSort(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Connect(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Determinize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Minimize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Compose(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ShortestPath(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedAlgorithmServiceServer can be embedded to satisfy
// AlgorithmServiceServer with methods that return codes.Unimplemented.
type UnimplementedAlgorithmServiceServer struct{}

func (UnimplementedAlgorithmServiceServer) ArcSort(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ArcSort not implemented")
}
func (UnimplementedAlgorithmServiceServer) Connect(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Connect not implemented")
}
func (UnimplementedAlgorithmServiceServer) Determinize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Determinize not implemented")
}
func (UnimplementedAlgorithmServiceServer) Minimize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Minimize not implemented")
}
func (UnimplementedAlgorithmServiceServer) Compose(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Compose not implemented")
}
func (UnimplementedAlgorithmServiceServer) ShortestPath(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ShortestPath not implemented")
}

func RegisterAlgorithmServiceServer(s grpc.ServiceRegistrar, srv AlgorithmServiceServer) {
	s.RegisterService(&AlgorithmService_ServiceDesc, srv)
}

func unaryHandler(method string, call func(AlgorithmServiceServer, context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AlgorithmServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AlgorithmServiceServer), ctx, req.(*wrapperspb.BytesValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AlgorithmService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "wfst.AlgorithmService",
	HandlerType: (*AlgorithmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ArcSort", Handler: unaryHandler(AlgorithmService_ArcSort_FullMethodName, AlgorithmServiceServer.ArcSort)},
		{MethodName: "Connect", Handler: unaryHandler(AlgorithmService_Connect_FullMethodName, AlgorithmServiceServer.Connect)},
		{MethodName: "Determinize", Handler: unaryHandler(AlgorithmService_Determinize_FullMethodName, AlgorithmServiceServer.Determinize)},
		{MethodName: "Minimize", Handler: unaryHandler(AlgorithmService_Minimize_FullMethodName, AlgorithmServiceServer.Minimize)},
		{MethodName: "Compose", Handler: unaryHandler(AlgorithmService_Compose_FullMethodName, AlgorithmServiceServer.Compose)},
		{MethodName: "ShortestPath", Handler: unaryHandler(AlgorithmService_ShortestPath_FullMethodName, AlgorithmServiceServer.ShortestPath)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wfst/algorithm.proto",
}

// #endregion server
