package hash

import "github.com/numahash/hashkv/internal/storage/page"

// dualPointerSize is the packed size, in bytes, of a page.DualPagePointer
// were it laid out on the wire (4-byte volatile offset + 8-byte snapshot
// offset). Used only to derive PointersPerPage so the fan-out matches what
// a byte-packed page of page.Size would actually hold.
const dualPointerSize = 12

// PointersPerPage is the number of child dual-pointers one intermediate page
// holds, resolving the spec's open question ("an implementer must pick a
// concrete fan-out") as: (PageSize - HeaderSize) / sizeof(DualPagePointer).
const PointersPerPage = (page.Size - page.HeaderSize) / dualPointerSize

// MaxBinsPerLevel[l] is the maximum number of bins a subtree rooted l+1
// levels above the data pages can address, i.e. PointersPerPage^(l+1). Index
// 0 means "one level of intermediate pages directly above data pages".
var MaxBinsPerLevel = computeMaxBinsPerLevel()

func computeMaxBinsPerLevel() [8]uint64 {
	var out [8]uint64
	acc := uint64(PointersPerPage)
	for i := range out {
		out[i] = acc
		acc *= uint64(PointersPerPage)
	}
	return out
}

// IntermediatePage is an internal index node carrying up to
// PointersPerPage dual pointers to children, which are themselves
// intermediate pages (if Level > 0) or data-page chain heads (if Level ==
// 0). A zero VolatileOffset in a child pointer means "not yet
// materialized".
//
// Content is held as a typed Go struct rather than manually marshaled into
// the NUMA pool's raw byte arena: see DESIGN.md for why (Go's memory model
// has no safe way to CAS a field inside an unsafe-cast byte slice without
// hand-rolled unsafe.Pointer arithmetic, and this core is in-memory-only —
// the non-goal'd snapshot/log file framing is where byte-exact page layout
// would actually matter).
type IntermediatePage struct {
	Lock     page.SeqLock
	Level    uint8
	Children [PointersPerPage]page.DualPagePointer
}

// NewIntermediatePage allocates an empty intermediate page at the given
// level (0 = children are data-page heads).
func NewIntermediatePage(level uint8) *IntermediatePage {
	return &IntermediatePage{Level: level}
}
