// Package registry issues monotonic storage IDs and tracks the mapping
// from name and ID to each open storage's control block, the way
// storage_manager_pimpl's storage array and name index do, adapted to the
// hash-storage-only core in internal/storage/hash.
package registry

import (
	"sync"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/storage/hash"
)

// entry pairs a control block with the page directory its HashStorage
// handles were built over, so a later Lookup can hand out new handles onto
// the same live tree.
type entry struct {
	cb  *hash.ControlBlock
	dir *hash.PageDirectory
}

// Registry is the process-wide directory of open hash storages. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]hash.StorageID
	byID    map[hash.StorageID]entry
	nextID  hash.StorageID
}

// New returns an empty registry. Storage ID 0 is never issued, mirroring
// the reserved-zero convention used throughout (null pointers, invalid
// epoch).
func New() *Registry {
	return &Registry{
		byName: make(map[string]hash.StorageID),
		byID:   make(map[hash.StorageID]entry),
		nextID: 1,
	}
}

// Register issues a fresh StorageID for name and records its control block
// and directory, rejecting a second registration under the same name.
func (r *Registry) Register(name string, cb *hash.ControlBlock, dir *hash.PageDirectory) (hash.StorageID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return 0, errs.Newf(errs.ErrStorageDuplicateID, "registry: storage %q already registered", name)
	}
	id := r.nextID
	r.nextID++
	r.byName[name] = id
	r.byID[id] = entry{cb: cb, dir: dir}
	return id, nil
}

// Lookup resolves a storage by name, returning its control block and
// directory for Load-ing a new HashStorage handle.
func (r *Registry) Lookup(name string) (*hash.ControlBlock, *hash.PageDirectory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, nil, errs.Newf(errs.ErrNotFound, "registry: no storage named %q", name)
	}
	e := r.byID[id]
	return e.cb, e.dir, nil
}

// LookupByID resolves a storage by its previously issued ID.
func (r *Registry) LookupByID(id hash.StorageID) (*hash.ControlBlock, *hash.PageDirectory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, nil, errs.Newf(errs.ErrNotFound, "registry: no storage with id %d", id)
	}
	return e.cb, e.dir, nil
}

// Remove drops name (and its ID) from the registry, e.g. once its control
// block has transitioned to StorageMarkedForDeath and the last handle has
// closed. It does not itself check the control block's status; callers
// decide when removal is safe.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	if !ok {
		return errs.Newf(errs.ErrNotFound, "registry: no storage named %q", name)
	}
	delete(r.byName, name)
	delete(r.byID, id)
	return nil
}

// List returns the names of all currently registered storages.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}
