package hash

import (
	"sync"

	"github.com/numahash/hashkv/internal/storage/page"
)

// StorageStatus is the lifecycle state of a hash storage's control block.
type StorageStatus uint8

const (
	StorageUnused StorageStatus = iota
	StorageCreating
	StorageExists
	StorageMarkedForDeath
)

func (s StorageStatus) String() string {
	switch s {
	case StorageUnused:
		return "unused"
	case StorageCreating:
		return "creating"
	case StorageExists:
		return "exists"
	case StorageMarkedForDeath:
		return "marked_for_death"
	default:
		return "unknown"
	}
}

// ControlBlock is the fixed, explicitly-initialized header every hash
// storage carries: its lifecycle status, metadata, derived bin/level
// counts, and the dual pointer to its root page. It is modeled as a POD
// layout with an explicit Init rather than relying on zero-value
// construction, since the zero value of StorageStatus (StorageUnused) must
// never be confused with a live, zero-bin-bits storage.
type ControlBlock struct {
	mu           sync.Mutex
	status       StorageStatus
	Meta         Metadata
	RootPage     page.DualPagePointer
	RootLevel    uint8
	BinsPerRoot  uint64
}

// NewControlBlock returns a freshly initialized control block in status
// StorageUnused; callers proceed StorageUnused -> StorageCreating ->
// StorageExists via Init and MarkExists.
func NewControlBlock() *ControlBlock {
	return &ControlBlock{status: StorageUnused}
}

// Init transitions the control block from StorageUnused to StorageCreating,
// recording meta and the root tree shape. Returns false if the block was
// not in StorageUnused (double-create).
func (cb *ControlBlock) Init(meta Metadata, rootLevel uint8) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.status != StorageUnused {
		return false
	}
	cb.Meta = meta
	cb.RootLevel = rootLevel
	cb.BinsPerRoot = meta.BinCount()
	cb.status = StorageCreating
	return true
}

// MarkExists transitions StorageCreating -> StorageExists once the root
// page has been materialized.
func (cb *ControlBlock) MarkExists() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.status == StorageCreating {
		cb.status = StorageExists
	}
}

// MarkForDeath transitions StorageExists -> StorageMarkedForDeath, after
// which no new transaction may open this storage; in-flight ones may
// finish.
func (cb *ControlBlock) MarkForDeath() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.status != StorageExists {
		return false
	}
	cb.status = StorageMarkedForDeath
	return true
}

// Status returns the current lifecycle status.
func (cb *ControlBlock) Status() StorageStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.status
}

// Exists reports whether the storage is currently open for transactions.
func (cb *ControlBlock) Exists() bool {
	return cb.Status() == StorageExists
}
