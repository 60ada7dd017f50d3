package hash

import (
	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/storage/page"
)

// GetRootPage follows the control block's root pointer down to the
// top-level intermediate page.
func (hs *HashStorage) GetRootPage() (*IntermediatePage, error) {
	return hs.followIntermediate(hs.cb.RootPage)
}

// followIntermediate resolves a dual pointer to its live IntermediatePage.
// A null pointer is reported as an error rather than silently treated as
// empty: only the root is allocated at Create time, so callers that may
// meet a not-yet-materialized child (LocateBinHead, ensureIntermediateChild)
// check for null before calling this.
func (hs *HashStorage) followIntermediate(ptr page.DualPagePointer) (*IntermediatePage, error) {
	if ptr.IsNull() {
		return nil, errs.New(errs.ErrNotFound, "hash: null pointer where intermediate page expected")
	}
	ip, ok := hs.dir.getIntermediate(ptr.VolatileOffset)
	if !ok {
		return nil, errs.Newf(errs.ErrNotFound, "hash: intermediate page %d not in directory", ptr.VolatileOffset)
	}
	return ip, nil
}

// followDataHead resolves a dual pointer to its live DataPage. Unlike
// intermediate pages, a null pointer here is the ordinary "this bin has no
// records yet" case and is reported via the bool return, not an error.
func (hs *HashStorage) followDataHead(ptr page.DualPagePointer) (*DataPage, bool) {
	if ptr.IsNull() {
		return nil, false
	}
	dp, ok := hs.dir.getData(ptr.VolatileOffset)
	return dp, ok
}

// pow returns base^exp for small non-negative exp (level counts are always
// single digits in practice, so this need not be fast).
func pow(base uint64, exp uint8) uint64 {
	r := uint64(1)
	for i := uint8(0); i < exp; i++ {
		r *= base
	}
	return r
}

// indexAt returns the child slot within a level-L intermediate page that
// bin routes through.
func indexAt(bin uint64, level uint8) int {
	return int((bin / pow(PointersPerPage, level)) % PointersPerPage)
}

// LocateBinHead walks the intermediate-page tree from the root down to the
// dual pointer addressing bin's data-page chain head. The returned pointer
// is null if no record has ever been inserted into this bin.
func (hs *HashStorage) LocateBinHead(bin uint64) (page.DualPagePointer, error) {
	ptr := hs.cb.RootPage
	level := hs.cb.RootLevel
	for {
		ip, err := hs.followIntermediate(ptr)
		if err != nil {
			return page.DualPagePointer{}, err
		}
		idx := indexAt(bin, level)
		child := ip.Children[idx]
		if level == 0 {
			return child, nil
		}
		if child.IsNull() {
			return page.DualPagePointer{}, nil
		}
		ptr = child
		level--
	}
}

// FollowPageBinHead is LocateBinHead followed by resolving the result to
// its live DataPage, if any.
func (hs *HashStorage) FollowPageBinHead(bin uint64) (*DataPage, bool, error) {
	ptr, err := hs.LocateBinHead(bin)
	if err != nil {
		return nil, false, err
	}
	dp, ok := hs.followDataHead(ptr)
	return dp, ok, nil
}
