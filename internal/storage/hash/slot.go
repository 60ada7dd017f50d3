package hash

import "github.com/numahash/hashkv/internal/xct"

// slotOverheadBytes approximates the fixed per-record bookkeeping cost
// (fingerprint, lengths, xid, flags) charged against a data page's capacity
// budget independent of key/payload size.
const slotOverheadBytes = 24

// Slot is one record's physical storage: the pre-filter fingerprint, the
// key and payload bytes, the reserved physical capacity (which may exceed
// the current logical payload length, leaving room for in-place growth up
// to that capacity), and the record's XID controlling optimistic
// concurrency and the locked/moved/deleted bits.
type Slot struct {
	Fingerprint      uint16
	Key              []byte
	Payload          []byte
	PhysicalCapacity uint16
	XID              xct.AtomicXID
}

// LogicalPayloadLength is the currently visible payload length, which may
// be shorter than PhysicalCapacity.
func (s *Slot) LogicalPayloadLength() uint16 { return uint16(len(s.Payload)) }

// physicalBytes is the capacity-budget cost of this slot: fixed overhead
// plus the key and reserved payload capacity.
func (s *Slot) physicalBytes() uint32 {
	return uint32(slotOverheadBytes) + uint32(len(s.Key)) + uint32(s.PhysicalCapacity)
}
