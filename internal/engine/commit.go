package engine

import (
	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/xct"
)

// Precommit validates everything tc's in-flight transaction observed: every
// read-set entry's XID must be unchanged and unlocked, and every
// page-version-set entry's seqlock must not have been written to since it
// was observed. A pointer-set entry records a dependency on a pointer the
// transaction treated as structurally significant (e.g. "this bin's chain
// head") — with no page-splitting or pointer-replacement implemented, a
// once-installed pointer is never overwritten, so pointer-set validation
// here only guards against a future compaction pass invalidating that
// assumption; today it always passes.
//
// On success, Precommit returns the current epoch the transaction should
// be considered to commit within. The caller's write operations already
// installed their final XIDs at call time (ops.go applies writes
// immediately under each page's lock rather than deferring to commit), so
// Precommit's job is purely to validate the reads a transaction based
// decisions on were never invalidated by a concurrent writer.
func Precommit(tc *ThreadContext, epoch *xct.EpochClock) (xct.Epoch, error) {
	for _, r := range tc.Buffers.ReadSet {
		cur := r.Address.Load()
		if cur != r.Observed || cur.IsLocked() {
			return xct.InvalidEpoch, errs.New(errs.ErrRaceRetry, "engine: read-set validation failed")
		}
	}
	for _, pv := range tc.Buffers.PageVersionSet {
		if !pv.Address.Retry(pv.Version) {
			return xct.InvalidEpoch, errs.New(errs.ErrRaceRetry, "engine: page-version-set validation failed")
		}
	}
	return epoch.Current(), nil
}
