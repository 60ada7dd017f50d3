package xct

import "github.com/numahash/hashkv/internal/storage/page"

// ReadXctAccess is one read-set entry: a reference to the XID storage of a
// record the transaction observed, plus the value it observed. Commit-time
// validation (outside this core) re-reads the XID and compares against
// Observed to detect concurrent modification.
type ReadXctAccess struct {
	Address  *AtomicXID
	Observed XID
}

// PointerSetEntry records a page pointer a traversal observed, including a
// "the pointer was null when I looked" observation that a concurrent writer
// materializing the pointer afterward would invalidate. LocateRecord adds
// one for the bin's head pointer, null or not, and one for each non-null
// overflow pointer it follows.
type PointerSetEntry struct {
	// Address of a copy of the pointer value observed.
	Address *page.DualPagePointer
}

// PageVersionSetEntry protects a "I walked this page's slot directory"
// observation against a concurrent insert. LocateRecord records one for
// every data page it scans, whether or not the key is found there and in
// either mode.
type PageVersionSetEntry struct {
	// Address of the page-version counter observed.
	Address *page.SeqLock
	Version uint64
}

// WriteXctAccess is one write-set entry installed by the transaction runtime
// (outside this core) when a write operation reports OK for a key. The core
// itself never appends to the write-set; it is modeled here only so that
// AccessBuffers has a complete, symmetric shape for tests exercising the
// full per-worker bookkeeping contract.
type WriteXctAccess struct {
	Address *AtomicXID
}

// AccessBuffers is the per-transaction, append-only set of logs the hash
// core appends entries to during record location: read-set, write-set,
// pointer-set, and page-version-set. One AccessBuffers lives inside each
// worker's ThreadContext and is reset at the start of every transaction by
// the (external) transaction runtime.
type AccessBuffers struct {
	ReadSet        []ReadXctAccess
	WriteSet       []WriteXctAccess
	PointerSet     []PointerSetEntry
	PageVersionSet []PageVersionSetEntry
}

// Reset clears all four logs for reuse by the next transaction, retaining
// the underlying slice capacity.
func (b *AccessBuffers) Reset() {
	b.ReadSet = b.ReadSet[:0]
	b.WriteSet = b.WriteSet[:0]
	b.PointerSet = b.PointerSet[:0]
	b.PageVersionSet = b.PageVersionSet[:0]
}

// AddRead appends a read-set entry and returns its address, mirroring the
// original's read_set_address out-parameter so callers can tell whether
// locate_record actually took a read-set (nil address otherwise).
func (b *AccessBuffers) AddRead(addr *AtomicXID, observed XID) *ReadXctAccess {
	b.ReadSet = append(b.ReadSet, ReadXctAccess{Address: addr, Observed: observed})
	return &b.ReadSet[len(b.ReadSet)-1]
}

// AddPointer appends a pointer-set entry.
func (b *AccessBuffers) AddPointer(addr *page.DualPagePointer) {
	b.PointerSet = append(b.PointerSet, PointerSetEntry{Address: addr})
}

// AddPageVersion appends a page-version-set entry.
func (b *AccessBuffers) AddPageVersion(addr *page.SeqLock, version uint64) {
	b.PageVersionSet = append(b.PageVersionSet, PageVersionSetEntry{Address: addr, Version: version})
}
