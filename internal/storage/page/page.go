// Package page defines the fixed-size page buffer, dual (volatile/snapshot)
// pointer, and page-level optimistic-concurrency primitives shared by every
// page type the hash storage builds on top of: intermediate pages and data
// pages alike.
package page

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	// Size is the fixed page size in bytes. 4 KiB matches common huge-page
	// and cacheline-multiple sizing for a NUMA-partitioned pool.
	Size = 4096

	// HeaderSize is the size of the common page header in bytes.
	//
	//	[0]     Type       (1 byte)
	//	[1]     Level      (1 byte) — 0 for leaf/data pages
	//	[2:4]   Reserved   (2 bytes)
	//	[4:8]   Bin        (4 bytes, uint32 LE) — truncated bin id, informational
	//	[8:16]  PageVersion(8 bytes, uint64 LE) — seqlock counter
	//	[16:20] CRC32      (4 bytes, uint32 LE)
	//	[20:28] NextVolatileOffset (4 bytes) + NextSnapshotOffset padding start
	//	[28:32] Reserved
	HeaderSize = 32

	// NullOffset is the reserved "not present" value for a volatile or
	// snapshot page offset.
	NullOffset uint32 = 0
)

// Type identifies the kind of data stored in a page.
type Type uint8

const (
	TypeIntermediate Type = 0x01
	TypeData         Type = 0x02
)

func (t Type) String() string {
	switch t {
	case TypeIntermediate:
		return "Intermediate"
	case TypeData:
		return "Data"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

// DualPagePointer is simultaneously a volatile-memory offset and a
// snapshot-file offset. Null is the zero value for both fields. Resolution
// of the volatile half goes through the owning NUMA pool's base address;
// the snapshot half is out of scope for this core (see spec Non-goals on
// log/snapshot file framing) and is carried only so the struct shape
// matches what a full engine would persist.
type DualPagePointer struct {
	VolatileOffset  uint32
	SnapshotOffset  uint64
}

// IsNull reports whether both halves of the pointer are unset.
func (p DualPagePointer) IsNull() bool {
	return p.VolatileOffset == NullOffset && p.SnapshotOffset == 0
}

// SeqLock is a page-version lock. Writers call Lock/Unlock around a
// mutation; readers call Begin/Retry in a loop without ever blocking a
// writer, per the spec's open-question decision to use seqlocks for
// readers-don't-block semantics.
type SeqLock struct {
	version uint64 // odd while locked for write, even otherwise
	mu      lockState
}

// lockState is a tiny spinlock used only to serialize writers against each
// other; readers never take it.
type lockState struct {
	locked uint32
}

// Header is the decoded form of the HeaderSize-byte common page header.
type Header struct {
	Type     Type
	Level    uint8
	Reserved uint16
	Bin      uint32
	CRC      uint32
}

// MarshalHeader writes a Header into the first HeaderSize bytes of buf.
func MarshalHeader(h *Header, buf []byte) {
	if len(buf) < HeaderSize {
		panic("buffer too small for page header")
	}
	buf[0] = byte(h.Type)
	buf[1] = h.Level
	binary.LittleEndian.PutUint16(buf[2:4], h.Reserved)
	binary.LittleEndian.PutUint32(buf[4:8], h.Bin)
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC)
}

// UnmarshalHeader reads a Header from the first HeaderSize bytes of buf.
func UnmarshalHeader(buf []byte) Header {
	var h Header
	h.Type = Type(buf[0])
	h.Level = buf[1]
	h.Reserved = binary.LittleEndian.Uint16(buf[2:4])
	h.Bin = binary.LittleEndian.Uint32(buf[4:8])
	h.CRC = binary.LittleEndian.Uint32(buf[16:20])
	return h
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ComputeCRC computes the CRC32-C of a full page, treating the CRC field
// (bytes 16..20) as zero during computation. Used only for snapshot
// hand-off integrity checks; volatile pages under active mutation do not
// pay this cost on every operation.
func ComputeCRC(buf []byte) uint32 {
	h := crc32.New(crcTable)
	h.Write(buf[:16])
	h.Write([]byte{0, 0, 0, 0})
	h.Write(buf[20:])
	return h.Sum32()
}

// SetCRC computes and writes the CRC into the page header.
func SetCRC(buf []byte) {
	binary.LittleEndian.PutUint32(buf[16:20], ComputeCRC(buf))
}

// VerifyCRC checks the CRC32-C checksum of a page.
func VerifyCRC(buf []byte) error {
	stored := binary.LittleEndian.Uint32(buf[16:20])
	computed := ComputeCRC(buf)
	if stored != computed {
		return fmt.Errorf("page CRC mismatch: stored=%08x computed=%08x", stored, computed)
	}
	return nil
}

// New allocates a zeroed page buffer and writes its header.
func New(t Type, level uint8, bin uint32) []byte {
	buf := make([]byte, Size)
	h := &Header{Type: t, Level: level, Bin: bin}
	MarshalHeader(h, buf)
	return buf
}
