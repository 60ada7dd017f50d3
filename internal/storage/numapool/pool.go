// Package numapool implements the per-NUMA-node bounded page pool: a
// central freelist of page offsets plus per-worker local chunks that amortize
// contention on the central list, mirroring the buffer-pool/LRU bookkeeping
// style of the teacher package but trading eviction for bounded allocation
// (this pool never evicts — it either has a free page or it doesn't).
package numapool

import (
	"sync"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/storage/page"
)

// Offset is a 32-bit index into a NUMA node's contiguous page arena.
// Offset 0 is reserved as null; resolving offset -> address is
// base + offset*page.Size.
type Offset uint32

const NullOffset Offset = 0

// DefaultChunkCapacity is the default number of offsets a worker's local
// chunk holds before it must refill from (or drain to) the central list.
const DefaultChunkCapacity = 256

// Population distinguishes the volatile page population from the snapshot
// page population within one NUMA node, so read-mostly snapshot traffic
// never starves write-path volatile allocation.
type Population int

const (
	Volatile Population = iota
	Snapshot
)

func (p Population) String() string {
	if p == Snapshot {
		return "snapshot"
	}
	return "volatile"
}

// centralList is a mutex-guarded bounded stack of free offsets.
type centralList struct {
	mu   sync.Mutex
	free []Offset
	cap  int
}

func newCentralList(capacity int) *centralList {
	return &centralList{free: make([]Offset, 0, capacity), cap: capacity}
}

func (c *centralList) push(offs []Offset) {
	c.mu.Lock()
	c.free = append(c.free, offs...)
	c.mu.Unlock()
}

func (c *centralList) popUpTo(n int) []Offset {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > len(c.free) {
		n = len(c.free)
	}
	tail := c.free[len(c.free)-n:]
	out := make([]Offset, n)
	copy(out, tail)
	c.free = c.free[:len(c.free)-n]
	return out
}

func (c *centralList) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.free)
}

// Pool is a NUMA node's volatile or snapshot page pool: a contiguous page
// arena plus a central freelist of offsets into it.
type Pool struct {
	nodeID     int
	population Population
	arena      []byte // contiguous region of pages owned by this node
	central    *centralList
}

// NewPool allocates a contiguous arena of capacity pages for one NUMA node
// and population, with every page initially free.
func NewPool(nodeID int, population Population, capacity int) *Pool {
	p := &Pool{
		nodeID:     nodeID,
		population: population,
		arena:      make([]byte, capacity*page.Size),
		central:    newCentralList(capacity),
	}
	offs := make([]Offset, 0, capacity)
	// Offset 0 is reserved null: the arena's first page is never handed out.
	for i := 1; i < capacity; i++ {
		offs = append(offs, Offset(i))
	}
	p.central.push(offs)
	return p
}

// Resolve maps an offset to its backing page buffer. Offset 0 must never be
// passed; callers are expected to have already checked for null.
func (p *Pool) Resolve(off Offset) []byte {
	start := int(off) * page.Size
	return p.arena[start : start+page.Size]
}

// AcquireOne draws a single offset directly from the central list. Workers
// should prefer Chunk.AcquireOne to avoid contending on the central list for
// every page; AcquireOne exists for callers without a worker-local chunk
// (e.g. tests, or snapshot hand-off bookkeeping).
func (p *Pool) AcquireOne() (Offset, error) {
	offs := p.central.popUpTo(1)
	if len(offs) == 0 {
		return NullOffset, errs.Newf(errs.ErrOutOfFreePages,
			"numapool: node %d population %v exhausted", p.nodeID, p.population)
	}
	return offs[0], nil
}

// ReleaseOne returns a single offset to the central list. Release never
// fails.
func (p *Pool) ReleaseOne(off Offset) {
	p.central.push([]Offset{off})
}

// Stat is a point-in-time snapshot of pool occupancy for dump_free_stat.
type Stat struct {
	NodeID         int
	Population     Population
	TotalPages     int
	CentralFree    int
}

// DumpFreeStat reports rough free-page statistics for this pool.
func (p *Pool) DumpFreeStat() Stat {
	return Stat{
		NodeID:      p.nodeID,
		Population:  p.population,
		TotalPages:  len(p.arena) / page.Size,
		CentralFree: p.central.count(),
	}
}
