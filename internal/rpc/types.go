package rpc

// GetRecordRequest/Response implement a point lookup.
type GetRecordRequest struct {
	Storage string `json:"storage"`
	Key     []byte `json:"key"`
}

type GetRecordResponse struct {
	Found   bool   `json:"found"`
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PutRecordRequest/Response implement an upsert.
type PutRecordRequest struct {
	Storage string `json:"storage"`
	Key     []byte `json:"key"`
	Payload []byte `json:"payload"`
}

type PutRecordResponse struct {
	Error string `json:"error,omitempty"`
}

// DeleteRecordRequest/Response tombstone a record.
type DeleteRecordRequest struct {
	Storage string `json:"storage"`
	Key     []byte `json:"key"`
}

type DeleteRecordResponse struct {
	Error string `json:"error,omitempty"`
}

// ListStoragesRequest/Response enumerate open storages.
type ListStoragesRequest struct{}

type ListStoragesResponse struct {
	Names []string `json:"names"`
}

// DumpPoolStatsRequest/Response report per-node, per-population page pool
// utilization.
type DumpPoolStatsRequest struct{}

type PoolStat struct {
	NodeID      int    `json:"node_id"`
	Population  string `json:"population"`
	TotalPages  int    `json:"total_pages"`
	CentralFree int    `json:"central_free"`
}

type DumpPoolStatsResponse struct {
	Stats []PoolStat `json:"stats"`
}
