package hash

import "github.com/numahash/hashkv/internal/errs"

// MigrateRecord grows a record's physical footprint by moving it to a
// fresh slot with more room: it reserves a new slot in the bin's tail
// page, copies the key and payload there, and marks the original slot
// moved so concurrent readers still chasing it know to keep walking the
// overflow chain rather than trust a stale physical location.
//
// Lock order is strict and always curPage -> tailPage, never the reverse,
// to avoid deadlocking against a concurrent migration of a different
// record that happens to pick the same two pages in the opposite order.
// When curPage and tailPage are the same page this degenerates into a
// single Lock/Unlock.
func (hs *HashStorage) MigrateRecord(loc RecordLocation, newPhysicalCapacity uint16, nodeHint int) (RecordLocation, error) {
	cur := loc.Page
	curSlot := cur.Slot(loc.SlotIndex)

	cur.Lock.Lock()
	defer cur.Lock.Unlock()

	xid := curSlot.XID.Load()
	if xid.IsMoved() {
		return RecordLocation{}, errs.New(errs.ErrRaceRetry, "hash: record already migrated by a concurrent writer")
	}
	if !HasRoomFor(len(curSlot.Key), newPhysicalCapacity) {
		return RecordLocation{}, errs.Newf(errs.ErrOutOfMemory, "hash: record capacity %d does not fit in a data page", newPhysicalCapacity)
	}
	moved, err := hs.migrateRecordMove(cur, curSlot, newPhysicalCapacity, nodeHint)
	if err != nil {
		return RecordLocation{}, err
	}
	curSlot.XID.Store(xid.WithMoved(true))
	return moved, nil
}

// migrateRecordMove reserves the new physical slot in the bin's tail page
// and copies curSlot's content into it. Caller holds cur.Lock for the
// duration; tailPage's own lock is taken here, after cur's, preserving the
// curPage -> tailPage order.
func (hs *HashStorage) migrateRecordMove(cur *DataPage, curSlot *Slot, newPhysicalCapacity uint16, nodeHint int) (RecordLocation, error) {
	tail := cur
	for !tail.NextPage.IsNull() {
		next, ok := hs.followDataHead(tail.NextPage)
		if !ok {
			return RecordLocation{}, errs.New(errs.ErrNotFound, "hash: overflow chain pointer did not resolve during migration")
		}
		tail = next
	}

	for {
		if tail != cur {
			tail.Lock.Lock()
		}
		newSlot, newIdx, ok := tail.TryReserve(curSlot.Key, curSlot.Fingerprint, newPhysicalCapacity)
		if ok {
			newSlot.Payload = append(newSlot.Payload[:0], curSlot.Payload...)
			oldXID := curSlot.XID.Load()
			newSlot.XID.Store(oldXID.WithMoved(false))
			if tail != cur {
				tail.Lock.Unlock()
			}
			return RecordLocation{Page: tail, SlotIndex: newIdx, ObservedXID: newSlot.XID.Load()}, nil
		}
		next, err := hs.AppendNextVolatilePage(tail, cur.Bin, nodeHint)
		if tail != cur {
			tail.Lock.Unlock()
		}
		if err != nil {
			return RecordLocation{}, err
		}
		tail = next
	}
}
