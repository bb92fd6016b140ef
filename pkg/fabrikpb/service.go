package fabrikpb

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "fabrik.cache.v1.FabrikCache"

// FabrikCacheServer is the server API for the Fabrik cache protocol.
type FabrikCacheServer interface {
	Exists(context.Context, *ExistsRequest) (*ExistsResponse, error)
	Get(*GetRequest, FabrikCache_GetServer) error
	Put(FabrikCache_PutServer) error
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	GetStats(context.Context, *GetStatsRequest) (*GetStatsResponse, error)
}

// FabrikCache_GetServer is the server-side stream for the server-streaming
// Get RPC.
type FabrikCache_GetServer interface {
	Send(*GetChunk) error
	grpc.ServerStream
}

type fabrikCacheGetServer struct{ grpc.ServerStream }

func (s *fabrikCacheGetServer) Send(chunk *GetChunk) error {
	return s.ServerStream.SendMsg(chunk)
}

// FabrikCache_PutServer is the server-side stream for the client-streaming
// Put RPC.
type FabrikCache_PutServer interface {
	SendAndClose(*PutResponse) error
	Recv() (*PutChunk, error)
	grpc.ServerStream
}

type fabrikCachePutServer struct{ grpc.ServerStream }

func (s *fabrikCachePutServer) SendAndClose(resp *PutResponse) error {
	return s.ServerStream.SendMsg(resp)
}

func (s *fabrikCachePutServer) Recv() (*PutChunk, error) {
	chunk := new(PutChunk)
	if err := s.ServerStream.RecvMsg(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func _FabrikCache_Exists_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ExistsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FabrikCacheServer).Exists(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Exists"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FabrikCacheServer).Exists(ctx, req.(*ExistsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _FabrikCache_Delete_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(DeleteRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FabrikCacheServer).Delete(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Delete"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FabrikCacheServer).Delete(ctx, req.(*DeleteRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _FabrikCache_GetStats_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetStatsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FabrikCacheServer).GetStats(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FabrikCacheServer).GetStats(ctx, req.(*GetStatsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _FabrikCache_Get_Handler(srv any, stream grpc.ServerStream) error {
	req := new(GetRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FabrikCacheServer).Get(req, &fabrikCacheGetServer{stream})
}

func _FabrikCache_Put_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(FabrikCacheServer).Put(&fabrikCachePutServer{stream})
}

// ServiceDesc is the grpc.ServiceDesc for the Fabrik cache protocol,
// registered against a *grpc.Server by RegisterFabrikCacheServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FabrikCacheServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Exists", Handler: _FabrikCache_Exists_Handler},
		{MethodName: "Delete", Handler: _FabrikCache_Delete_Handler},
		{MethodName: "GetStats", Handler: _FabrikCache_GetStats_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Get", Handler: _FabrikCache_Get_Handler, ServerStreams: true},
		{StreamName: "Put", Handler: _FabrikCache_Put_Handler, ClientStreams: true},
	},
	Metadata: "fabrik/cache.proto",
}

// RegisterFabrikCacheServer registers srv on s.
func RegisterFabrikCacheServer(s grpc.ServiceRegistrar, srv FabrikCacheServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FabrikCacheClient is the client API for the Fabrik cache protocol.
type FabrikCacheClient interface {
	Exists(ctx context.Context, in *ExistsRequest, opts ...grpc.CallOption) (*ExistsResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (FabrikCache_GetClient, error)
	Put(ctx context.Context, opts ...grpc.CallOption) (FabrikCache_PutClient, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*GetStatsResponse, error)
}

type fabrikCacheClient struct {
	cc grpc.ClientConnInterface
}

// NewFabrikCacheClient wraps cc with the Fabrik cache protocol client API.
func NewFabrikCacheClient(cc grpc.ClientConnInterface) FabrikCacheClient {
	return &fabrikCacheClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

func (c *fabrikCacheClient) Exists(ctx context.Context, in *ExistsRequest, opts ...grpc.CallOption) (*ExistsResponse, error) {
	out := new(ExistsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Exists", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fabrikCacheClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Delete", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fabrikCacheClient) GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*GetStatsResponse, error) {
	out := new(GetStatsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetStats", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// FabrikCache_GetClient is the client-side stream for the server-streaming
// Get RPC.
type FabrikCache_GetClient interface {
	Recv() (*GetChunk, error)
	grpc.ClientStream
}

type fabrikCacheGetClient struct{ grpc.ClientStream }

func (x *fabrikCacheGetClient) Recv() (*GetChunk, error) {
	chunk := new(GetChunk)
	if err := x.ClientStream.RecvMsg(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func (c *fabrikCacheClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (FabrikCache_GetClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+serviceName+"/Get", callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &fabrikCacheGetClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// FabrikCache_PutClient is the client-side stream for the client-streaming
// Put RPC.
type FabrikCache_PutClient interface {
	Send(*PutChunk) error
	CloseAndRecv() (*PutResponse, error)
	grpc.ClientStream
}

type fabrikCachePutClient struct{ grpc.ClientStream }

func (x *fabrikCachePutClient) Send(chunk *PutChunk) error {
	return x.ClientStream.SendMsg(chunk)
}

func (x *fabrikCachePutClient) CloseAndRecv() (*PutResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	resp := new(PutResponse)
	if err := x.ClientStream.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *fabrikCacheClient) Put(ctx context.Context, opts ...grpc.CallOption) (FabrikCache_PutClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[1], "/"+serviceName+"/Put", callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	return &fabrikCachePutClient{stream}, nil
}
