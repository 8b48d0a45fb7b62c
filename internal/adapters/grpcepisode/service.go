package grpcepisode

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tickship.episode.v1.Episode"

const applyBatchMethod = "/" + ServiceName + "/ApplyBatch"

// episodeServer is the server API for the Episode service.
type episodeServer interface {
	ApplyBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func applyBatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(episodeServer).ApplyBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: applyBatchMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(episodeServer).ApplyBatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var episodeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*episodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ApplyBatch",
			Handler:    applyBatchHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tickship/episode/v1/episode.proto",
}
