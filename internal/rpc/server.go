package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/numahash/hashkv/internal/engine"
	"github.com/numahash/hashkv/internal/storage/numapool"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Server implements AdminService over an *engine.Engine. Every RPC runs as
// its own single-operation, auto-committing transaction: it builds a fresh
// ThreadContext and performs the op. Writes report success as soon as the
// op returns, matching the op-level auto-commit model
// internal/storage/hash/ops.go implements; GetRecord runs engine.Precommit
// on a found record before returning its payload.
type Server struct {
	eng *engine.Engine
}

// NewServer wraps eng for RPC dispatch.
func NewServer(eng *engine.Engine) *Server {
	return &Server{eng: eng}
}

// NewGRPCServer builds a *grpc.Server with the admin service registered and
// the JSON codec active, ready for a caller to net.Listen and Serve on.
func NewGRPCServer(eng *engine.Engine) *grpc.Server {
	gs := grpc.NewServer()
	RegisterAdminService(gs, NewServer(eng))
	return gs
}

func (s *Server) GetRecord(ctx context.Context, req *GetRecordRequest) (*GetRecordResponse, error) {
	hs, err := s.eng.OpenStorage(req.Storage)
	if err != nil {
		return &GetRecordResponse{Error: err.Error()}, nil
	}
	tc := s.eng.NewThreadContext(0)
	tc.BeginXct()
	payload, found, err := hs.GetRecord(req.Key, &tc.Buffers)
	if err != nil {
		return &GetRecordResponse{Error: err.Error()}, nil
	}
	if !found {
		return &GetRecordResponse{Found: false}, nil
	}
	if _, err := engine.Precommit(tc, s.eng.Epoch); err != nil {
		return &GetRecordResponse{Error: err.Error()}, nil
	}
	return &GetRecordResponse{Found: true, Payload: payload}, nil
}

func (s *Server) PutRecord(ctx context.Context, req *PutRecordRequest) (*PutRecordResponse, error) {
	hs, err := s.eng.OpenStorage(req.Storage)
	if err != nil {
		return &PutRecordResponse{Error: err.Error()}, nil
	}
	tc := s.eng.NewThreadContext(0)
	tc.BeginXct()
	epoch := s.eng.Epoch.Current()
	ordinal := s.eng.NextOrdinal()
	if err := hs.UpsertRecord(req.Key, req.Payload, epoch, ordinal, tc.NodeIdx, &tc.Buffers); err != nil {
		return &PutRecordResponse{Error: err.Error()}, nil
	}
	return &PutRecordResponse{}, nil
}

func (s *Server) DeleteRecord(ctx context.Context, req *DeleteRecordRequest) (*DeleteRecordResponse, error) {
	hs, err := s.eng.OpenStorage(req.Storage)
	if err != nil {
		return &DeleteRecordResponse{Error: err.Error()}, nil
	}
	tc := s.eng.NewThreadContext(0)
	tc.BeginXct()
	epoch := s.eng.Epoch.Current()
	ordinal := s.eng.NextOrdinal()
	if err := hs.DeleteRecord(req.Key, epoch, ordinal, &tc.Buffers); err != nil {
		return &DeleteRecordResponse{Error: err.Error()}, nil
	}
	return &DeleteRecordResponse{}, nil
}

func (s *Server) ListStorages(ctx context.Context, req *ListStoragesRequest) (*ListStoragesResponse, error) {
	return &ListStoragesResponse{Names: s.eng.Registry.List()}, nil
}

func (s *Server) DumpPoolStats(ctx context.Context, req *DumpPoolStatsRequest) (*DumpPoolStatsResponse, error) {
	var out []PoolStat
	for _, n := range s.eng.Nodes {
		for _, stat := range n.DumpFreeStat() {
			out = append(out, toPoolStat(stat))
		}
	}
	return &DumpPoolStatsResponse{Stats: out}, nil
}

func toPoolStat(s numapool.Stat) PoolStat {
	return PoolStat{
		NodeID:      s.NodeID,
		Population:  s.Population.String(),
		TotalPages:  s.TotalPages,
		CentralFree: s.CentralFree,
	}
}
