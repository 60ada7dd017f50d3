package hash

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/xct"
)

func (hs *HashStorage) combo(key []byte) Combo {
	return ComputeCombo(key, hs.cb.Meta.BinBits)
}

// GetRecord reads a record's full payload, appending a read-set entry so
// the caller's transaction runtime can validate it at commit. A record
// observed locked by another transaction is reported as ErrRaceRetry
// rather than returned, since its payload may be mid-write.
func (hs *HashStorage) GetRecord(key []byte, buffers *xct.AccessBuffers) ([]byte, bool, error) {
	loc, found, err := hs.LocateRecord(key, hs.combo(key), buffers, false)
	if err != nil || !found {
		return nil, found, err
	}
	if loc.ObservedXID.IsLocked() {
		return nil, false, errs.New(errs.ErrRaceRetry, "hash: record locked by a concurrent writer")
	}
	slot := loc.Page.Slot(loc.SlotIndex)
	if buffers != nil {
		buffers.AddRead(&slot.XID, loc.ObservedXID)
	}
	out := make([]byte, len(slot.Payload))
	copy(out, slot.Payload)
	return out, true, nil
}

// GetRecordPart reads a length-byte slice of a record's payload starting at
// offset, for callers that only need a field within a larger record.
func (hs *HashStorage) GetRecordPart(key []byte, offset, length int, buffers *xct.AccessBuffers) ([]byte, bool, error) {
	full, found, err := hs.GetRecord(key, buffers)
	if err != nil || !found {
		return nil, found, err
	}
	if offset < 0 || length < 0 || offset+length > len(full) {
		return nil, false, errs.Newf(errs.ErrNotFound, "hash: record part [%d:%d+%d] out of bounds (len %d)",
			offset, offset, length, len(full))
	}
	return full[offset : offset+length], true, nil
}

// InsertRecord creates a new record. It fails with ErrDuplicateKey if a
// live record already occupies the key, reusing a tombstoned slot's
// physical space (after a prior DeleteRecord) when one is available.
func (hs *HashStorage) InsertRecord(key, payload []byte, epoch xct.Epoch, ordinal uint32, nodeHint int, buffers *xct.AccessBuffers) error {
	combo := hs.combo(key)
	if _, found, err := hs.LocateRecord(key, combo, buffers, false); err != nil {
		return err
	} else if found {
		return errs.Newf(errs.ErrDuplicateKey, "hash: key already exists")
	}
	loc, err := hs.LocateRecordReservePhysical(key, combo, uint16(len(payload)), nodeHint, buffers)
	if err != nil {
		return err
	}
	return hs.installPayload(loc, payload, epoch, ordinal, false)
}

// UpsertRecord installs payload for key whether or not it already exists,
// reusing the physical slot (live or tombstoned) when possible and only
// reserving a fresh one on first insert.
func (hs *HashStorage) UpsertRecord(key, payload []byte, epoch xct.Epoch, ordinal uint32, nodeHint int, buffers *xct.AccessBuffers) error {
	combo := hs.combo(key)
	loc, err := hs.LocateRecordReservePhysical(key, combo, uint16(len(payload)), nodeHint, buffers)
	if err != nil {
		return err
	}
	return hs.installPayload(loc, payload, epoch, ordinal, false)
}

// DeleteRecord marks a live record's slot deleted without reclaiming its
// physical space, which remains available for reuse by a later
// InsertRecord or UpsertRecord on the same key.
func (hs *HashStorage) DeleteRecord(key []byte, epoch xct.Epoch, ordinal uint32, buffers *xct.AccessBuffers) error {
	loc, found, err := hs.LocateRecord(key, hs.combo(key), buffers, false)
	if err != nil {
		return err
	}
	if !found {
		return errs.New(errs.ErrNotFound, "hash: no live record for key")
	}
	slot := loc.Page.Slot(loc.SlotIndex)
	loc.Page.Lock.Lock()
	defer loc.Page.Lock.Unlock()
	slot.XID.Store(xct.NewXID(epoch, ordinal).WithDeleted(true))
	return nil
}

// OverwriteRecord replaces a length-of-payload window of an existing
// live record's payload starting at offset, leaving the rest of the
// payload and the record's physical capacity untouched. The record must
// already be large enough; OverwriteRecord never grows or migrates a
// record (use UpsertRecord for that).
func (hs *HashStorage) OverwriteRecord(key, payload []byte, offset int, epoch xct.Epoch, ordinal uint32, buffers *xct.AccessBuffers) error {
	loc, found, err := hs.LocateRecord(key, hs.combo(key), buffers, false)
	if err != nil {
		return err
	}
	if !found {
		return errs.New(errs.ErrNotFound, "hash: no live record for key")
	}
	slot := loc.Page.Slot(loc.SlotIndex)
	if offset < 0 || offset+len(payload) > len(slot.Payload) {
		return errs.Newf(errs.ErrNotFound, "hash: overwrite window [%d:%d] out of bounds (len %d)",
			offset, offset+len(payload), len(slot.Payload))
	}
	loc.Page.Lock.Lock()
	defer loc.Page.Lock.Unlock()
	copy(slot.Payload[offset:], payload)
	slot.XID.Store(xct.NewXID(epoch, ordinal))
	return nil
}

// installPayload writes payload into loc's slot (growing it in place if it
// still fits within PhysicalCapacity, migrating to a larger slot via
// MigrateRecord otherwise) and installs the slot's final XID.
func (hs *HashStorage) installPayload(loc RecordLocation, payload []byte, epoch xct.Epoch, ordinal uint32, alreadyMigrated bool) error {
	slot := loc.Page.Slot(loc.SlotIndex)
	if uint16(len(payload)) > slot.PhysicalCapacity && !alreadyMigrated {
		moved, err := hs.MigrateRecord(loc, uint16(len(payload)), 0)
		if err != nil {
			return err
		}
		return hs.installPayload(moved, payload, epoch, ordinal, true)
	}
	loc.Page.Lock.Lock()
	defer loc.Page.Lock.Unlock()
	slot.Payload = append(slot.Payload[:0], payload...)
	slot.XID.Store(xct.NewXID(epoch, ordinal))
	return nil
}

// Numeric bounds the fixed-width primitive types OverwriteRecordPrimitive
// and IncrementRecord operate on directly, without going through a
// caller-supplied codec.
type Numeric interface {
	int32 | int64 | uint32 | uint64 | float32 | float64
}

func marshalNumeric[T Numeric](v T) []byte {
	buf := make([]byte, 8)
	switch x := any(v).(type) {
	case int32:
		binary.LittleEndian.PutUint32(buf, uint32(x))
		return buf[:4]
	case uint32:
		binary.LittleEndian.PutUint32(buf, x)
		return buf[:4]
	case int64:
		binary.LittleEndian.PutUint64(buf, uint64(x))
		return buf[:8]
	case uint64:
		binary.LittleEndian.PutUint64(buf, x)
		return buf[:8]
	case float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
		return buf[:4]
	case float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
		return buf[:8]
	default:
		return nil
	}
}

func unmarshalNumeric[T Numeric](buf []byte) T {
	var zero T
	switch any(zero).(type) {
	case int32:
		return any(int32(binary.LittleEndian.Uint32(buf))).(T)
	case uint32:
		return any(binary.LittleEndian.Uint32(buf)).(T)
	case int64:
		return any(int64(binary.LittleEndian.Uint64(buf))).(T)
	case uint64:
		return any(binary.LittleEndian.Uint64(buf)).(T)
	case float32:
		return any(math.Float32frombits(binary.LittleEndian.Uint32(buf))).(T)
	case float64:
		return any(math.Float64frombits(binary.LittleEndian.Uint64(buf))).(T)
	default:
		return zero
	}
}

// OverwriteRecordPrimitive overwrites a fixed-width numeric field at offset
// within an existing live record, without disturbing the rest of the
// payload.
func OverwriteRecordPrimitive[T Numeric](hs *HashStorage, key []byte, offset int, value T, epoch xct.Epoch, ordinal uint32, buffers *xct.AccessBuffers) error {
	return hs.OverwriteRecord(key, marshalNumeric(value), offset, epoch, ordinal, buffers)
}

// IncrementRecord adds delta to the fixed-width numeric field at offset
// within an existing live record and returns the field's new value. The
// read-modify-write is performed under the page's write lock, so two
// concurrent increments to the same field never lose an update.
func IncrementRecord[T Numeric](hs *HashStorage, key []byte, offset int, delta T, epoch xct.Epoch, ordinal uint32, buffers *xct.AccessBuffers) (T, error) {
	var zero T
	loc, found, err := hs.LocateRecord(key, hs.combo(key), buffers, false)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, errs.New(errs.ErrNotFound, "hash: no live record for key")
	}
	slot := loc.Page.Slot(loc.SlotIndex)
	width := len(marshalNumeric(zero))
	if offset < 0 || offset+width > len(slot.Payload) {
		return zero, errs.Newf(errs.ErrNotFound, "hash: increment field [%d:%d] out of bounds (len %d)",
			offset, offset+width, len(slot.Payload))
	}
	loc.Page.Lock.Lock()
	defer loc.Page.Lock.Unlock()
	cur := unmarshalNumeric[T](slot.Payload[offset : offset+width])
	next := cur + delta
	copy(slot.Payload[offset:offset+width], marshalNumeric(next))
	slot.XID.Store(xct.NewXID(epoch, ordinal))
	return next, nil
}

// WriteLogEntry is one pending write the transaction runtime has buffered
// for apply at precommit, identified by the storage and bin it targets.
type WriteLogEntry struct {
	StorageID StorageID
	Bin       uint64
	Key       []byte
	Ordinal   int
}

// BatchSortLogs orders a batch of write-log entries by (StorageID, Bin,
// Ordinal) so the apply phase touches each bin's pages in a single consistent
// pass instead of bouncing between them; within a bin the original ordinal
// decides the order. Key is not compared.
func BatchSortLogs(logs []WriteLogEntry) []WriteLogEntry {
	out := make([]WriteLogEntry, len(logs))
	copy(out, logs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StorageID != b.StorageID {
			return a.StorageID < b.StorageID
		}
		if a.Bin != b.Bin {
			return a.Bin < b.Bin
		}
		return a.Ordinal < b.Ordinal
	})
	return out
}
