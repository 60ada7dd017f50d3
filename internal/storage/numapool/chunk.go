package numapool

import "github.com/numahash/hashkv/internal/errs"

// Chunk is a worker-local cache of free offsets drawn from one Pool. Workers
// draw from and return to the chunk without synchronization; only when the
// chunk empties (refill) or fills past capacity (drain) does it contact the
// pool's central list, amortizing central-list contention across Capacity
// acquisitions.
type Chunk struct {
	pool     *Pool
	capacity int
	offsets  []Offset
}

// NewChunk creates an empty chunk bound to pool with the given capacity.
func NewChunk(pool *Pool, capacity int) *Chunk {
	if capacity <= 0 {
		capacity = DefaultChunkCapacity
	}
	return &Chunk{pool: pool, capacity: capacity, offsets: make([]Offset, 0, capacity)}
}

// AcquireOne returns a single offset from the chunk, refilling in bulk from
// the central list first if the chunk is empty.
func (c *Chunk) AcquireOne() (Offset, error) {
	if len(c.offsets) == 0 {
		if err := c.refill(); err != nil {
			return NullOffset, err
		}
	}
	last := len(c.offsets) - 1
	off := c.offsets[last]
	c.offsets = c.offsets[:last]
	return off, nil
}

// ReleaseOne returns an offset to the chunk, draining in bulk to the central
// list first if the chunk is already at capacity.
func (c *Chunk) ReleaseOne(off Offset) {
	if len(c.offsets) >= c.capacity {
		c.drain()
	}
	c.offsets = append(c.offsets, off)
}

func (c *Chunk) refill() error {
	want := c.capacity / 2
	if want == 0 {
		want = 1
	}
	offs := c.pool.central.popUpTo(want)
	if len(offs) == 0 {
		return errs.Newf(errs.ErrOutOfFreePages,
			"numapool: node %d population %v exhausted (chunk refill)", c.pool.nodeID, c.pool.population)
	}
	c.offsets = append(c.offsets, offs...)
	return nil
}

func (c *Chunk) drain() {
	half := len(c.offsets) / 2
	if half == 0 {
		return
	}
	c.pool.central.push(c.offsets[:half])
	remaining := make([]Offset, len(c.offsets)-half)
	copy(remaining, c.offsets[half:])
	c.offsets = remaining
}

// Len reports the number of offsets currently cached locally, for tests and
// DumpFreeStat-style introspection.
func (c *Chunk) Len() int { return len(c.offsets) }

// Release drains the entire chunk back to the central list, e.g. when a
// worker is shutting down.
func (c *Chunk) Release() {
	if len(c.offsets) == 0 {
		return
	}
	c.pool.central.push(c.offsets)
	c.offsets = c.offsets[:0]
}
