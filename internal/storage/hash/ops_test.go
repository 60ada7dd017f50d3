package hash

import (
	"fmt"
	"sync"
	"testing"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/storage/numapool"
	"github.com/numahash/hashkv/internal/xct"
)

func newTestNodes(t *testing.T, pagesPerNode int) []*numapool.Node {
	t.Helper()
	return []*numapool.Node{numapool.NewNode(0, pagesPerNode, pagesPerNode)}
}

func newTestStorage(t *testing.T, binBits uint8, pagesPerNode int) *HashStorage {
	t.Helper()
	nodes := newTestNodes(t, pagesPerNode)
	hs, err := Create(Metadata{Name: "t", BinBits: binBits}, nodes, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return hs
}

func TestInsertThenGetRoundTrip(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("hello")
	payload := []byte("world")

	if err := hs.InsertRecord(key, payload, 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	got, found, err := hs.GetRecord(key, &buf)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !found {
		t.Fatal("GetRecord did not find the just-inserted record")
	}
	if string(got) != "world" {
		t.Fatalf("GetRecord payload = %q, want %q", got, "world")
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("dup")
	if err := hs.InsertRecord(key, []byte("a"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("first InsertRecord: %v", err)
	}
	err := hs.InsertRecord(key, []byte("b"), 1, 2, 0, &buf)
	if errs.CodeOf(err) != errs.ErrDuplicateKey {
		t.Fatalf("second InsertRecord on the same key should fail with ErrDuplicateKey, got %v", err)
	}
}

func TestUpsertReplacesPayload(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("k")

	if err := hs.UpsertRecord(key, []byte("v1"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("first UpsertRecord: %v", err)
	}
	if err := hs.UpsertRecord(key, []byte("v2-longer"), 1, 2, 0, &buf); err != nil {
		t.Fatalf("second UpsertRecord: %v", err)
	}
	got, found, err := hs.GetRecord(key, &buf)
	if err != nil || !found {
		t.Fatalf("GetRecord after upsert: found=%v err=%v", found, err)
	}
	if string(got) != "v2-longer" {
		t.Fatalf("GetRecord payload = %q, want %q", got, "v2-longer")
	}
}

func TestDeleteThenGetNotFound(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("gone")
	if err := hs.InsertRecord(key, []byte("v"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := hs.DeleteRecord(key, 1, 2, &buf); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	_, found, err := hs.GetRecord(key, &buf)
	if err != nil {
		t.Fatalf("GetRecord after delete: %v", err)
	}
	if found {
		t.Fatal("GetRecord found a deleted record")
	}
}

func TestDeleteThenReinsertReusesSlot(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("reuse")
	if err := hs.InsertRecord(key, []byte("v1"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := hs.DeleteRecord(key, 1, 2, &buf); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if err := hs.InsertRecord(key, []byte("v2"), 1, 3, 0, &buf); err != nil {
		t.Fatalf("re-InsertRecord after delete: %v", err)
	}
	got, found, err := hs.GetRecord(key, &buf)
	if err != nil || !found {
		t.Fatalf("GetRecord after reinsert: found=%v err=%v", found, err)
	}
	if string(got) != "v2" {
		t.Fatalf("GetRecord payload = %q, want %q", got, "v2")
	}
}

func TestGetRecordPartBounds(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("part")
	if err := hs.InsertRecord(key, []byte("0123456789"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	part, found, err := hs.GetRecordPart(key, 2, 3, &buf)
	if err != nil || !found {
		t.Fatalf("GetRecordPart: found=%v err=%v", found, err)
	}
	if string(part) != "234" {
		t.Fatalf("GetRecordPart = %q, want %q", part, "234")
	}
	if _, _, err := hs.GetRecordPart(key, 8, 10, &buf); err == nil {
		t.Fatal("GetRecordPart should fail when the window exceeds the payload length")
	}
}

func TestOverwriteRecordInPlace(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("ow")
	if err := hs.InsertRecord(key, []byte("AAAAAAAAAA"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := hs.OverwriteRecord(key, []byte("BB"), 3, 1, 2, &buf); err != nil {
		t.Fatalf("OverwriteRecord: %v", err)
	}
	got, _, err := hs.GetRecord(key, &buf)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if string(got) != "AAABBAAAAA" {
		t.Fatalf("OverwriteRecord result = %q, want %q", got, "AAABBAAAAA")
	}
}

func TestOverwriteRecordNeverGrows(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("small")
	if err := hs.InsertRecord(key, []byte("ab"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := hs.OverwriteRecord(key, []byte("too-long-for-this-slot"), 0, 1, 2, &buf); err == nil {
		t.Fatal("OverwriteRecord should refuse a window exceeding the current payload length")
	}
}

func TestUpsertMigratesWhenRecordGrowsBeyondCapacity(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("grow")
	small := []byte("x")
	big := make([]byte, 512)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	if err := hs.InsertRecord(key, small, 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := hs.UpsertRecord(key, big, 1, 2, 0, &buf); err != nil {
		t.Fatalf("UpsertRecord (growing past capacity, should migrate): %v", err)
	}
	got, found, err := hs.GetRecord(key, &buf)
	if err != nil || !found {
		t.Fatalf("GetRecord after migration: found=%v err=%v", found, err)
	}
	if string(got) != string(big) {
		t.Fatal("migrated record's payload bytes were not preserved exactly")
	}
}

func TestOverwriteRecordPrimitiveAndIncrement(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var buf xct.AccessBuffers
	key := []byte("counter")
	// 8 bytes of payload room for one int64 field at offset 0.
	if err := hs.InsertRecord(key, make([]byte, 8), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := OverwriteRecordPrimitive[int64](hs, key, 0, 100, 1, 2, &buf); err != nil {
		t.Fatalf("OverwriteRecordPrimitive: %v", err)
	}
	next, err := IncrementRecord[int64](hs, key, 0, 5, 1, 3, &buf)
	if err != nil {
		t.Fatalf("IncrementRecord: %v", err)
	}
	if next != 105 {
		t.Fatalf("IncrementRecord result = %d, want 105", next)
	}
	part, _, err := hs.GetRecordPart(key, 0, 8, &buf)
	if err != nil {
		t.Fatalf("GetRecordPart: %v", err)
	}
	got := unmarshalNumeric[int64](part)
	if got != 105 {
		t.Fatalf("stored field = %d, want 105", got)
	}
}

func TestIncrementRecordConcurrentNeverLosesAnUpdate(t *testing.T) {
	hs := newTestStorage(t, 8, 64)
	var setupBuf xct.AccessBuffers
	key := []byte("atomic-counter")
	if err := hs.InsertRecord(key, make([]byte, 8), 1, 1, 0, &setupBuf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	const workers = 20
	const perWorker = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			var buf xct.AccessBuffers
			for i := 0; i < perWorker; i++ {
				if _, err := IncrementRecord[int64](hs, key, 0, 1, 1, uint32(w*perWorker+i+1), &buf); err != nil {
					t.Errorf("IncrementRecord: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	var buf xct.AccessBuffers
	part, _, err := hs.GetRecordPart(key, 0, 8, &buf)
	if err != nil {
		t.Fatalf("GetRecordPart: %v", err)
	}
	got := unmarshalNumeric[int64](part)
	if got != workers*perWorker {
		t.Fatalf("final counter = %d, want %d (a concurrent increment was lost)", got, workers*perWorker)
	}
}

func TestManyKeysRoundTrip(t *testing.T) {
	hs := newTestStorage(t, 10, 512)
	var buf xct.AccessBuffers
	const n = 300
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		val := []byte(fmt.Sprintf("value-%04d", i))
		if err := hs.InsertRecord(key, val, 1, uint32(i+1), 0, &buf); err != nil {
			t.Fatalf("InsertRecord(%s): %v", key, err)
		}
	}
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		want := fmt.Sprintf("value-%04d", i)
		got, found, err := hs.GetRecord(key, &buf)
		if err != nil || !found {
			t.Fatalf("GetRecord(%s): found=%v err=%v", key, found, err)
		}
		if string(got) != want {
			t.Fatalf("GetRecord(%s) = %q, want %q", key, got, want)
		}
	}
}

func TestBatchSortLogsOrdersByStorageBinThenOrdinal(t *testing.T) {
	logs := []WriteLogEntry{
		{StorageID: 2, Bin: 1, Ordinal: 5},
		{StorageID: 1, Bin: 5, Ordinal: 1},
		{StorageID: 1, Bin: 1, Ordinal: 9},
		{StorageID: 1, Bin: 1, Ordinal: 2},
	}
	sorted := BatchSortLogs(logs)
	want := []WriteLogEntry{
		{StorageID: 1, Bin: 1, Ordinal: 2},
		{StorageID: 1, Bin: 1, Ordinal: 9},
		{StorageID: 1, Bin: 5, Ordinal: 1},
		{StorageID: 2, Bin: 1, Ordinal: 5},
	}
	for i := range want {
		if sorted[i].StorageID != want[i].StorageID || sorted[i].Bin != want[i].Bin || sorted[i].Ordinal != want[i].Ordinal {
			t.Fatalf("sorted[%d] = %+v, want %+v", i, sorted[i], want[i])
		}
	}
	if len(logs) != 4 || logs[0].StorageID != 2 {
		t.Fatal("BatchSortLogs must not mutate its input slice")
	}
}
