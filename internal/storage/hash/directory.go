package hash

import "sync"

// pagePtr is a packed page.DualPagePointer.VolatileOffset: the top 8 bits
// select a NUMA node, the low 24 bits select an offset within that node's
// numapool.Pool. 24 bits of per-node offset comfortably exceeds any
// realistic single-node page budget while leaving room for 256 nodes.
type pagePtr = uint32

const (
	nodeShift  = 24
	offsetMask = 0x00FFFFFF
)

func packPointer(nodeID int, off uint32) pagePtr {
	return pagePtr(uint32(nodeID)<<nodeShift | (off & offsetMask))
}

func unpackPointer(v pagePtr) (nodeID int, off uint32) {
	return int(v >> nodeShift), v & offsetMask
}

// PageDirectory maps packed volatile pointers to the live, typed page
// objects they address. The NUMA pools (internal/storage/numapool) account
// for and bound how many offsets exist per node/population; PageDirectory
// is the side table resolving an offset to its actual content, playing the
// role Pool.Resolve plays for raw byte arenas.
type PageDirectory struct {
	mu    sync.RWMutex
	inter map[pagePtr]*IntermediatePage
	data  map[pagePtr]*DataPage
}

// NewPageDirectory returns an empty directory.
func NewPageDirectory() *PageDirectory {
	return &PageDirectory{
		inter: make(map[pagePtr]*IntermediatePage),
		data:  make(map[pagePtr]*DataPage),
	}
}

func (d *PageDirectory) putIntermediate(ptr pagePtr, p *IntermediatePage) {
	d.mu.Lock()
	d.inter[ptr] = p
	d.mu.Unlock()
}

func (d *PageDirectory) getIntermediate(ptr pagePtr) (*IntermediatePage, bool) {
	d.mu.RLock()
	p, ok := d.inter[ptr]
	d.mu.RUnlock()
	return p, ok
}

func (d *PageDirectory) putData(ptr pagePtr, p *DataPage) {
	d.mu.Lock()
	d.data[ptr] = p
	d.mu.Unlock()
}

func (d *PageDirectory) getData(ptr pagePtr) (*DataPage, bool) {
	d.mu.RLock()
	p, ok := d.data[ptr]
	d.mu.RUnlock()
	return p, ok
}
