package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/numahash/hashkv/internal/engine"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(engine.Config{VolatilePagesPerNode: 64, SnapshotPagesPerNode: 0})
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	if c.Name() != "json" {
		t.Fatalf("Name() = %q, want json", c.Name())
	}
	want := PutRecordRequest{Storage: "s", Key: []byte("k"), Payload: []byte("v")}
	buf, err := c.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got PutRecordRequest
	if err := c.Unmarshal(buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Storage != want.Storage || string(got.Key) != string(want.Key) || string(got.Payload) != string(want.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	// Sanity-check it is genuinely JSON on the wire, not some opaque blob.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf, &raw); err != nil {
		t.Fatalf("codec output is not valid JSON: %v", err)
	}
}

func TestServerPutGetDeleteRoundTrip(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.CreateStorage("widgets", 4, 0); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	s := NewServer(eng)
	ctx := context.Background()

	putResp, err := s.PutRecord(ctx, &PutRecordRequest{Storage: "widgets", Key: []byte("k1"), Payload: []byte("v1")})
	if err != nil || putResp.Error != "" {
		t.Fatalf("PutRecord: err=%v resp=%+v", err, putResp)
	}

	getResp, err := s.GetRecord(ctx, &GetRecordRequest{Storage: "widgets", Key: []byte("k1")})
	if err != nil || getResp.Error != "" {
		t.Fatalf("GetRecord: err=%v resp=%+v", err, getResp)
	}
	if !getResp.Found || string(getResp.Payload) != "v1" {
		t.Fatalf("GetRecord = %+v, want found payload v1", getResp)
	}

	delResp, err := s.DeleteRecord(ctx, &DeleteRecordRequest{Storage: "widgets", Key: []byte("k1")})
	if err != nil || delResp.Error != "" {
		t.Fatalf("DeleteRecord: err=%v resp=%+v", err, delResp)
	}

	getResp2, err := s.GetRecord(ctx, &GetRecordRequest{Storage: "widgets", Key: []byte("k1")})
	if err != nil || getResp2.Error != "" {
		t.Fatalf("GetRecord after delete: err=%v resp=%+v", err, getResp2)
	}
	if getResp2.Found {
		t.Fatal("GetRecord should report not-found after a DeleteRecord")
	}
}

func TestServerGetRecordUnknownStorage(t *testing.T) {
	eng := testEngine(t)
	s := NewServer(eng)
	resp, err := s.GetRecord(context.Background(), &GetRecordRequest{Storage: "missing", Key: []byte("k")})
	if err != nil {
		t.Fatalf("GetRecord transport error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("GetRecord against an unknown storage should report an application-level error")
	}
}

func TestServerListStorages(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.CreateStorage("a", 4, 0); err != nil {
		t.Fatalf("CreateStorage(a): %v", err)
	}
	if _, err := eng.CreateStorage("b", 4, 0); err != nil {
		t.Fatalf("CreateStorage(b): %v", err)
	}
	s := NewServer(eng)
	resp, err := s.ListStorages(context.Background(), &ListStoragesRequest{})
	if err != nil {
		t.Fatalf("ListStorages: %v", err)
	}
	if len(resp.Names) != 2 {
		t.Fatalf("ListStorages returned %d names, want 2", len(resp.Names))
	}
}

func TestServerDumpPoolStats(t *testing.T) {
	eng := testEngine(t)
	s := NewServer(eng)
	resp, err := s.DumpPoolStats(context.Background(), &DumpPoolStatsRequest{})
	if err != nil {
		t.Fatalf("DumpPoolStats: %v", err)
	}
	if len(resp.Stats) == 0 {
		t.Fatal("DumpPoolStats should report at least one population per node")
	}
}

func TestNewGRPCServerRegistersAdminService(t *testing.T) {
	eng := testEngine(t)
	gs := NewGRPCServer(eng)
	info := gs.GetServiceInfo()
	if _, ok := info["hashkv.Admin"]; !ok {
		t.Fatalf("expected hashkv.Admin to be registered, got %v", info)
	}
}
