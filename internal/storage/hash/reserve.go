package hash

import (
	"bytes"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/storage/page"
	"github.com/numahash/hashkv/internal/xct"
)

// walkToLeafIntermediate descends to the level-0 intermediate page that
// owns bin's child slot, returning that page and the slot index within it.
// Unlike the read-only traversal in traversal.go, a missing (null) child
// at an interior level is materialized here under lock-coupling: the
// parent's Lock is held while its child pointer is re-checked and, if
// still null, a fresh intermediate page is allocated and installed.
func (hs *HashStorage) walkToLeafIntermediate(bin uint64, nodeHint int) (*IntermediatePage, int, error) {
	ptr := hs.cb.RootPage
	level := hs.cb.RootLevel
	for {
		ip, err := hs.followIntermediate(ptr)
		if err != nil {
			return nil, 0, err
		}
		idx := indexAt(bin, level)
		if level == 0 {
			return ip, idx, nil
		}
		child, err := hs.ensureIntermediateChild(ip, idx, level-1, nodeHint)
		if err != nil {
			return nil, 0, err
		}
		ptr = child
		level--
	}
}

// ensureIntermediateChild returns parent's existing child at idx, or
// allocates and installs a fresh level-(childLevel) intermediate page
// there if it is still null.
func (hs *HashStorage) ensureIntermediateChild(parent *IntermediatePage, idx int, childLevel uint8, nodeHint int) (page.DualPagePointer, error) {
	parent.Lock.Lock()
	defer parent.Lock.Unlock()
	if existing := parent.Children[idx]; !existing.IsNull() {
		return existing, nil
	}
	ptr, err := hs.allocateIntermediate(nodeHint, childLevel)
	if err != nil {
		return page.DualPagePointer{}, err
	}
	parent.Children[idx] = ptr
	return ptr, nil
}

// ensureBinHead returns bin's data-page chain head, materializing a fresh
// empty DataPage and installing it into the owning leaf intermediate page
// if this is the bin's first record.
func (hs *HashStorage) ensureBinHead(bin uint64, nodeHint int) (*DataPage, error) {
	leaf, idx, err := hs.walkToLeafIntermediate(bin, nodeHint)
	if err != nil {
		return nil, err
	}
	leaf.Lock.Lock()
	defer leaf.Lock.Unlock()
	if existing := leaf.Children[idx]; !existing.IsNull() {
		dp, ok := hs.followDataHead(existing)
		if ok {
			return dp, nil
		}
	}
	ptr, dp, err := hs.allocateData(nodeHint, bin)
	if err != nil {
		return nil, err
	}
	leaf.Children[idx] = ptr
	return dp, nil
}

// AppendNextVolatilePage links a freshly allocated, empty DataPage after
// tail in tail's overflow chain, used once tail's capacity budget is
// exhausted. Caller must already hold tail.Lock.
func (hs *HashStorage) AppendNextVolatilePage(tail *DataPage, bin uint64, nodeHint int) (*DataPage, error) {
	ptr, dp, err := hs.allocateData(nodeHint, bin)
	if err != nil {
		return nil, err
	}
	tail.NextPage = ptr
	return dp, nil
}

// LocateRecordReservePhysical finds an existing physical slot for key
// (live or tombstoned) to reuse, or else reserves a brand-new slot in the
// bin's tail page, allocating an overflow page first if the tail is full.
// Before reserving, each page's slots are scanned again for key under that
// page's Lock, so a slot a concurrent writer reserved for the same key in
// the meantime is returned instead of a second one. A freshly reserved slot
// carries a tombstone XID (deleted bit set) and the page's Lock is released
// before returning; the caller (the transactional op in ops.go) installs
// the payload and the live XID afterward, taking the Lock itself.
func (hs *HashStorage) LocateRecordReservePhysical(
	key []byte, combo Combo, physicalCapacity uint16, nodeHint int, buffers *xct.AccessBuffers,
) (RecordLocation, error) {
	if loc, found, err := hs.LocateRecord(key, combo, buffers, true); err != nil {
		return RecordLocation{}, err
	} else if found {
		return loc, nil
	}

	head, err := hs.ensureBinHead(combo.Bin, nodeHint)
	if err != nil {
		return RecordLocation{}, err
	}
	if buffers != nil {
		headPtr, _ := hs.LocateBinHead(combo.Bin)
		if !headPtr.IsNull() {
			buffers.AddPointer(&page.DualPagePointer{VolatileOffset: headPtr.VolatileOffset})
		}
	}

	dp := head
	for {
		dp.Lock.Lock()
		for i := 0; i < dp.SlotCount(); i++ {
			if s := dp.Slot(i); s.Fingerprint == combo.Fingerprint && bytes.Equal(s.Key, key) && !s.XID.Load().IsMoved() {
				dp.Lock.Unlock()
				return RecordLocation{Page: dp, SlotIndex: i, ObservedXID: s.XID.Load()}, nil
			}
		}
		s, idx, ok := dp.TryReserve(key, combo.Fingerprint, physicalCapacity)
		if ok {
			dp.Lock.Unlock()
			return RecordLocation{Page: dp, SlotIndex: idx, ObservedXID: s.XID.Load()}, nil
		}
		if !dp.NextPage.IsNull() {
			next, nok := hs.followDataHead(dp.NextPage)
			dp.Lock.Unlock()
			if !nok {
				return RecordLocation{}, errs.New(errs.ErrNotFound, "hash: overflow chain pointer did not resolve")
			}
			dp = next
			continue
		}
		next, err := hs.AppendNextVolatilePage(dp, combo.Bin, nodeHint)
		dp.Lock.Unlock()
		if err != nil {
			return RecordLocation{}, err
		}
		dp = next
	}
}
