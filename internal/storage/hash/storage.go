package hash

import (
	"sync"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/storage/numapool"
	"github.com/numahash/hashkv/internal/storage/page"
)

// HashStorage is the attachable handle to one hash storage: a thin wrapper
// around a *ControlBlock plus the NUMA-partitioned page pools and page
// directory it allocates volatile pages from. Multiple HashStorage values
// may be constructed over the same underlying control block (see Load);
// all of them observe the same lifecycle and tree.
//
// Allocation draws from a per-node numapool.Chunk rather than hitting each
// Pool's central free list directly, amortizing central-list contention
// across bursts of page allocation the way a worker's thread-local chunk
// would; chunksMu guards it since a HashStorage handle may be shared by
// more than one goroutine.
type HashStorage struct {
	cb       *ControlBlock
	dir      *PageDirectory
	nodes    []*numapool.Node
	chunksMu sync.Mutex
	chunks   []*numapool.Chunk
}

func newChunks(nodes []*numapool.Node) []*numapool.Chunk {
	chunks := make([]*numapool.Chunk, len(nodes))
	for i, n := range nodes {
		chunks[i] = numapool.NewChunk(n.Volatile, numapool.DefaultChunkCapacity)
	}
	return chunks
}

// Create initializes a brand-new storage with the given metadata, rooted
// directly over data pages (RootLevel 0) if bin_count fits in one
// intermediate page, otherwise over however many intermediate levels
// bin_count requires. nodeHint selects which NUMA node's pool the root
// page is allocated from.
func Create(meta Metadata, nodes []*numapool.Node, nodeHint int) (*HashStorage, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	rootLevel := rootLevelFor(meta.BinCount())
	cb := NewControlBlock()
	if !cb.Init(meta, rootLevel) {
		return nil, errs.New(errs.ErrStorageDuplicateID, "hash: control block already initialized")
	}
	hs := &HashStorage{cb: cb, dir: NewPageDirectory(), nodes: nodes, chunks: newChunks(nodes)}
	ptr, err := hs.allocateIntermediate(nodeHint, rootLevel)
	if err != nil {
		return nil, err
	}
	cb.RootPage = ptr
	cb.MarkExists()
	return hs, nil
}

// Load attaches a new HashStorage handle to an already-existing control
// block and directory, e.g. when a second worker thread opens a storage
// another thread created.
func Load(cb *ControlBlock, dir *PageDirectory, nodes []*numapool.Node) (*HashStorage, error) {
	if !cb.Exists() {
		return nil, errs.Newf(errs.ErrNotFound, "hash: storage %q is not open (status %v)", cb.Meta.Name, cb.Status())
	}
	return &HashStorage{cb: cb, dir: dir, nodes: nodes, chunks: newChunks(nodes)}, nil
}

// Drop marks the storage dead, after which Load refuses to attach new
// handles. Handles that already exist keep working: record operations do
// not check the storage's status.
func (hs *HashStorage) Drop() error {
	if !hs.cb.MarkForDeath() {
		return errs.Newf(errs.ErrNotFound, "hash: storage %q could not be marked for death from status %v",
			hs.cb.Meta.Name, hs.cb.Status())
	}
	return nil
}

// ControlBlock exposes the underlying control block, e.g. for the registry
// and admin RPC to report status/metadata.
func (hs *HashStorage) ControlBlock() *ControlBlock { return hs.cb }

// Directory exposes the underlying page directory so a registry can hand
// it to a later Load call for a second handle onto the same tree.
func (hs *HashStorage) Directory() *PageDirectory { return hs.dir }

// rootLevelFor picks the smallest intermediate-page level whose fan-out
// covers binCount bins.
func rootLevelFor(binCount uint64) uint8 {
	level := uint8(0)
	for MaxBinsPerLevel[level] < binCount {
		level++
		if int(level) >= len(MaxBinsPerLevel) {
			break
		}
	}
	return level
}

func (hs *HashStorage) allocateIntermediate(nodeHint int, level uint8) (page.DualPagePointer, error) {
	idx, node := hs.pickNode(nodeHint)
	off, err := hs.acquireOffset(idx)
	if err != nil {
		return page.DualPagePointer{}, err
	}
	ptr := packPointer(node.ID, uint32(off))
	hs.dir.putIntermediate(ptr, NewIntermediatePage(level))
	return page.DualPagePointer{VolatileOffset: ptr}, nil
}

func (hs *HashStorage) allocateData(nodeHint int, bin uint64) (page.DualPagePointer, *DataPage, error) {
	idx, node := hs.pickNode(nodeHint)
	off, err := hs.acquireOffset(idx)
	if err != nil {
		return page.DualPagePointer{}, nil, err
	}
	ptr := packPointer(node.ID, uint32(off))
	dp := NewDataPage(bin)
	hs.dir.putData(ptr, dp)
	return page.DualPagePointer{VolatileOffset: ptr}, dp, nil
}

func (hs *HashStorage) acquireOffset(nodeIdx int) (numapool.Offset, error) {
	hs.chunksMu.Lock()
	defer hs.chunksMu.Unlock()
	return hs.chunks[nodeIdx].AcquireOne()
}

func (hs *HashStorage) pickNode(nodeHint int) (int, *numapool.Node) {
	if nodeHint < 0 || nodeHint >= len(hs.nodes) {
		nodeHint = 0
	}
	return nodeHint, hs.nodes[nodeHint]
}
