package rpc

import "encoding/json"

// jsonCodec replaces protobuf wire encoding with plain JSON, following the
// same manual-ServiceDesc-plus-JSON-codec approach tinySQL's cmd/server
// uses: no .proto files, no generated *.pb.go, grpc used purely for its
// transport, multiplexing, and interceptor machinery.
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
