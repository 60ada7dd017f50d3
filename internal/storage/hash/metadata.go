package hash

import (
	"fmt"

	"github.com/numahash/hashkv/internal/errs"
)

// StorageID is a monotonically issued, process-wide unique identifier for a
// hash storage, assigned by internal/storage/registry.
type StorageID uint32

// Metadata carries a storage's name, id, bin_bits (determining bin_count =
// 2^bin_bits), and a default payload size hint used when a more specific
// create_payload_length is not supplied.
type Metadata struct {
	Name             string
	ID               StorageID
	BinBits          uint8
	DefaultPayloadHint uint16
}

// BinCount returns 2^bin_bits.
func (m Metadata) BinCount() uint64 { return uint64(1) << m.BinBits }

// MaxBinBits bounds bin_bits so bin_count always fits comfortably below the
// point where a single-level root page could address it via 32-bit
// fan-out arithmetic; chosen generously relative to PointersPerPage.
const MaxBinBits = 48

// Validate checks metadata invariants the registry and HashStorage.Create
// must enforce before a control block is initialized.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return errs.New(errs.ErrDependentModuleUnavailable, "hash: storage name must not be empty")
	}
	if m.BinBits == 0 || m.BinBits > MaxBinBits {
		return errs.Newf(errs.ErrDependentModuleUnavailable,
			"hash: bin_bits %d out of range (1..%d)", m.BinBits, MaxBinBits)
	}
	return nil
}

func (m Metadata) String() string {
	return fmt.Sprintf("HashMetadata{name:%q id:%d bin_bits:%d bin_count:%d}",
		m.Name, m.ID, m.BinBits, m.BinCount())
}
