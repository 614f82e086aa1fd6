// Package rpc exposes the kinematics solver over gRPC. Messages are
// google.protobuf.Struct values so clients need no generated stubs.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "kinematics.v1.KinematicsService"

	AnalyzeMethod     = "/" + ServiceName + "/Analyze"
	QuasiStaticMethod = "/" + ServiceName + "/QuasiStatic"
	ListCarsMethod    = "/" + ServiceName + "/ListCars"
)

// KinematicsServer is the server API for KinematicsService.
type KinematicsServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QuasiStatic(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCars(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterKinematicsServer registers srv on s.
func RegisterKinematicsServer(s grpc.ServiceRegistrar, srv KinematicsServer) {
	s.RegisterService(&KinematicsServiceDesc, srv)
}

// KinematicsServiceDesc describes KinematicsService for grpc.Server.
var KinematicsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KinematicsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: unaryHandler(AnalyzeMethod, KinematicsServer.Analyze)},
		{MethodName: "QuasiStatic", Handler: unaryHandler(QuasiStaticMethod, KinematicsServer.QuasiStatic)},
		{MethodName: "ListCars", Handler: unaryHandler(ListCarsMethod, KinematicsServer.ListCars)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kinematics/v1/kinematics.proto",
}

type structMethod func(KinematicsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KinematicsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(KinematicsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls KinematicsService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Analyze(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyzeMethod, in, opts)
}

func (c *Client) QuasiStatic(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, QuasiStaticMethod, in, opts)
}

func (c *Client) ListCars(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListCarsMethod, in, opts)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
