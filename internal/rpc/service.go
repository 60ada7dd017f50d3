package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// AdminService is the hand-rolled gRPC service interface backing the
// admin/inspection surface: no .proto file or protoc-generated stub, the
// same manual grpc.ServiceDesc approach tinySQL's cmd/server/main.go uses
// for TinySQLServer.
type AdminService interface {
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	PutRecord(context.Context, *PutRecordRequest) (*PutRecordResponse, error)
	DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error)
	ListStorages(context.Context, *ListStoragesRequest) (*ListStoragesResponse, error)
	DumpPoolStats(context.Context, *DumpPoolStatsRequest) (*DumpPoolStatsResponse, error)
}

// RegisterAdminService registers srv against s using a manually built
// ServiceDesc, so no protoc-generated registration code is required.
func RegisterAdminService(s *grpc.Server, srv AdminService) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "hashkv.Admin",
		HandlerType: (*AdminService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetRecord", Handler: getRecordHandler},
			{MethodName: "PutRecord", Handler: putRecordHandler},
			{MethodName: "DeleteRecord", Handler: deleteRecordHandler},
			{MethodName: "ListStorages", Handler: listStoragesHandler},
			{MethodName: "DumpPoolStats", Handler: dumpPoolStatsHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "hashkv",
	}, srv)
}

func getRecordHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRecordRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminService).GetRecord(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hashkv.Admin/GetRecord"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminService).GetRecord(ctx, req.(*GetRecordRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func putRecordHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PutRecordRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminService).PutRecord(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hashkv.Admin/PutRecord"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminService).PutRecord(ctx, req.(*PutRecordRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteRecordHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteRecordRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminService).DeleteRecord(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hashkv.Admin/DeleteRecord"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminService).DeleteRecord(ctx, req.(*DeleteRecordRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listStoragesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListStoragesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminService).ListStorages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hashkv.Admin/ListStorages"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminService).ListStorages(ctx, req.(*ListStoragesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func dumpPoolStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DumpPoolStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminService).DumpPoolStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hashkv.Admin/DumpPoolStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminService).DumpPoolStats(ctx, req.(*DumpPoolStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
