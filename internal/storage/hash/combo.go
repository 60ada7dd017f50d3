// Package hash implements the hash storage core: intermediate and data
// pages, the optimistic record location protocol, record migration, and the
// per-storage control block, all built on top of internal/storage/numapool
// and internal/storage/page.
package hash

import "math/bits"

// Combo is the derived key descriptor computed once per operation: the full
// 64-bit hash, the bin index (the top bin_bits of the hash), a 16-bit
// fingerprint used as a cheap slot pre-filter, and an 8-bit tag reserved for
// future collision-resolution strategies.
type Combo struct {
	FullHash    uint64
	Bin         uint64
	Fingerprint uint16
	Tag         uint8
}

// fnvOffset/fnvPrime implement FNV-1a, used to derive FullHash from a raw
// key. FNV-1a is the simplest hash that gives good bit dispersion across
// both the high bits (used for Bin and Fingerprint) and low bits (used for
// Tag), which a single multiplicative hash alone does not guarantee.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

func fnv1a(key []byte) uint64 {
	h := uint64(fnvOffset)
	for _, b := range key {
		h ^= uint64(b)
		h *= fnvPrime
	}
	return h
}

// ComputeCombo derives a Combo for key under a storage with the given
// bin_bits, per: bin = full_hash >> (64 - bin_bits).
func ComputeCombo(key []byte, binBits uint8) Combo {
	full := fnv1a(key)
	var bin uint64
	if binBits > 0 {
		bin = full >> (64 - binBits)
	}
	// Fingerprint is bits 45..60 of the full hash (the low 16 bits after a
	// left rotation by 19); for binBits above 3 it shares its top bits with Bin.
	fp := uint16(bits.RotateLeft64(full, 19))
	return Combo{
		FullHash:    full,
		Bin:         bin,
		Fingerprint: fp,
		Tag:         uint8(full),
	}
}
