package hash

import (
	"sync/atomic"

	"github.com/numahash/hashkv/internal/storage/page"
	"github.com/numahash/hashkv/internal/xct"
)

// DataPageCapacityBytes is the per-page budget available for slot content,
// mirroring a byte-packed page's (PageSize - HeaderSize) once a fixed
// header is subtracted.
const DataPageCapacityBytes = page.Size - page.HeaderSize

// DataPage holds one bin's records (or one link of its overflow chain once
// the head page fills). Lock is the optimistic concurrency seqlock callers
// must Begin()/Retry() around when reading SlotCount/Slot contents without
// holding a write lock, and must Lock()/Unlock() around when installing new
// slots, marking a slot moved, or appending to the overflow chain.
//
// slots is append-only while the page is live: readers only ever observe a
// prefix of it by loading slotCount with an atomic acquire load, which is
// only ever advanced after the new slot's fields are fully written.
type DataPage struct {
	Lock      page.SeqLock
	Bin       uint64
	NextPage  page.DualPagePointer
	slots     []*Slot
	slotCount atomic.Uint32
	usedBytes atomic.Uint32
}

// NewDataPage allocates an empty data page for bin.
func NewDataPage(bin uint64) *DataPage {
	return &DataPage{Bin: bin}
}

// SlotCount returns the number of slots visible to a concurrent reader.
func (p *DataPage) SlotCount() int { return int(p.slotCount.Load()) }

// Slot returns the i'th slot. Callers must have already bounded i by a
// SlotCount() observed under the optimistic-read protocol (Lock.Begin /
// Lock.Retry) so a concurrent migration cannot be observed half-done.
func (p *DataPage) Slot(i int) *Slot { return p.slots[i] }

// UsedBytes reports the capacity-budget bytes currently consumed.
func (p *DataPage) UsedBytes() uint32 { return p.usedBytes.Load() }

// TryReserve appends a new slot for key with the given fingerprint and
// physical payload capacity, provided the page's capacity budget has room.
// Callers must hold Lock (via Lock.Lock/Unlock) across TryReserve; the new
// slot starts tombstoned, so its payload and live XID may be installed
// under a later Lock section. Returns the new slot
// and its index, or (nil, -1, false) if the page is full.
func (p *DataPage) TryReserve(key []byte, fingerprint uint16, physicalCapacity uint16) (*Slot, int, bool) {
	s := &Slot{
		Fingerprint:      fingerprint,
		Key:              append([]byte(nil), key...),
		Payload:          make([]byte, 0, physicalCapacity),
		PhysicalCapacity: physicalCapacity,
	}
	need := s.physicalBytes()
	if p.usedBytes.Load()+need > DataPageCapacityBytes {
		return nil, -1, false
	}
	// A freshly reserved slot starts out tombstoned (deleted bit set) so
	// that any reader racing the gap between this reservation becoming
	// visible and the caller installing the record's real payload and XID
	// sees "not found" rather than a live record with an empty payload.
	s.XID.Store(xct.NewXID(0, 0).WithDeleted(true))
	idx := len(p.slots)
	p.slots = append(p.slots, s)
	p.usedBytes.Add(need)
	p.slotCount.Store(uint32(idx + 1))
	return s, idx, true
}

// HasRoomFor reports whether a record needing physicalCapacity bytes of
// payload plus keyLen key bytes could fit in a freshly allocated page of
// this capacity; MigrateRecord uses it to reject a capacity that no data
// page can hold.
func HasRoomFor(keyLen int, physicalCapacity uint16) bool {
	need := uint32(slotOverheadBytes) + uint32(keyLen) + uint32(physicalCapacity)
	return need <= DataPageCapacityBytes
}
