package page

import (
	"runtime"
	"sync/atomic"
)

// Lock acquires the write side of the seqlock: spins until it wins a CAS
// against the writer-side spinlock, then bumps the version counter to odd
// so concurrent readers observe "being written" and retry.
func (s *SeqLock) Lock() {
	for !atomic.CompareAndSwapUint32(&s.mu.locked, 0, 1) {
		runtime.Gosched()
	}
	atomic.AddUint64(&s.version, 1) // now odd: a write is in progress
}

// Unlock releases the write side, bumping the version counter to even again
// so readers know the page is quiescent.
func (s *SeqLock) Unlock() {
	atomic.AddUint64(&s.version, 1) // now even again
	atomic.StoreUint32(&s.mu.locked, 0)
}

// Begin returns the current version for a read-intent caller to later pass
// to Retry. If the returned version is odd, a write is in progress and the
// caller should immediately retry rather than read page contents.
func (s *SeqLock) Begin() uint64 {
	return atomic.LoadUint64(&s.version)
}

// Retry reports whether the version observed at the matching Begin() call
// is still current, i.e. no writer has touched the page since. A false
// result (or an odd startVersion) means the caller must re-read and retry.
func (s *SeqLock) Retry(startVersion uint64) bool {
	if startVersion&1 != 0 {
		return false
	}
	return atomic.LoadUint64(&s.version) == startVersion
}

// Version returns the raw version counter, odd while a writer holds the
// lock. LocateRecord records the value returned by Begin, not this one.
func (s *SeqLock) Version() uint64 {
	return atomic.LoadUint64(&s.version)
}
