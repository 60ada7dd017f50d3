package hash

import (
	"bytes"

	"github.com/numahash/hashkv/internal/storage/page"
	"github.com/numahash/hashkv/internal/xct"
)

// RecordLocation pins down a specific slot within a specific data page, at
// the moment LocateRecord observed it. The observed XID must be re-checked
// by the caller (e.g. at commit time, against the write-set/read-set) since
// the lock bit may flip or the record may be migrated between location and
// use.
type RecordLocation struct {
	Page        *DataPage
	SlotIndex   int
	ObservedXID xct.XID
}

// LocateRecord walks from the root, through the bin's overflow chain, to
// the slot holding key. Into buffers it registers the bin's head pointer
// (also when it is null, i.e. the bin is not materialized), each non-null
// overflow pointer it follows, and the version of every data page it
// scans, so a subsequent commit can validate them.
//
// physicalOnly widens the search to include slots whose XID has the
// deleted bit set (needed by overwrite/insert-after-delete paths that must
// find the physical slot regardless of logical visibility); with
// physicalOnly false, a deleted slot is treated as not-found.
func (hs *HashStorage) LocateRecord(key []byte, combo Combo, buffers *xct.AccessBuffers, physicalOnly bool) (RecordLocation, bool, error) {
	headPtr, err := hs.LocateBinHead(combo.Bin)
	if err != nil {
		return RecordLocation{}, false, err
	}
	if buffers != nil {
		buffers.AddPointer(&page.DualPagePointer{VolatileOffset: headPtr.VolatileOffset})
	}
	dp, ok := hs.followDataHead(headPtr)
	for ok {
		loc, found := hs.scanPageForKey(dp, key, combo, buffers, physicalOnly)
		if found {
			return loc, true, nil
		}
		next := dp.NextPage
		if buffers != nil && !next.IsNull() {
			buffers.AddPointer(&page.DualPagePointer{VolatileOffset: next.VolatileOffset})
		}
		dp, ok = hs.followDataHead(next)
	}
	return RecordLocation{}, false, nil
}

// scanPageForKey performs one optimistic-read pass over dp's slots,
// retrying the whole pass if a concurrent writer was active during it. It
// registers dp's observed seqlock version into buffers regardless of
// outcome, since even a non-matching scan must be re-validated at commit
// (a concurrent insert could land the key the scan missed).
func (hs *HashStorage) scanPageForKey(dp *DataPage, key []byte, combo Combo, buffers *xct.AccessBuffers, physicalOnly bool) (RecordLocation, bool) {
	for {
		startVersion := dp.Lock.Begin()
		if startVersion%2 == 1 {
			continue // writer in progress, spin until it finishes
		}
		count := dp.SlotCount()
		var found RecordLocation
		hit := false
		for i := 0; i < count; i++ {
			s := dp.Slot(i)
			if s.Fingerprint != combo.Fingerprint {
				continue
			}
			if !bytes.Equal(s.Key, key) {
				continue
			}
			xid := s.XID.Load()
			if xid.IsMoved() {
				// Stale slot left behind by MigrateRecord; the live copy is
				// further along the chain, so keep scanning instead of
				// reporting this one as found.
				continue
			}
			found = RecordLocation{Page: dp, SlotIndex: i, ObservedXID: xid}
			hit = true
			break
		}
		if !dp.Lock.Retry(startVersion) {
			continue
		}
		if buffers != nil {
			buffers.AddPageVersion(&dp.Lock, startVersion)
		}
		if !hit {
			return RecordLocation{}, false
		}
		if !physicalOnly && found.ObservedXID.IsDeleted() {
			return RecordLocation{}, false
		}
		return found, true
	}
}
