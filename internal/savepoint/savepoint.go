// Package savepoint persists the durable point a process can safely
// resume from after restart: the current and durable epochs, and the
// oldest/current position each logger (epoch ticker generation, in the
// non-goal'd absence of a real write-ahead log here) would need to replay
// from. The binary layout and atomic write-then-rename persistence follow
// cache_binary.go's magic+version header / CRC trailer / atomic.WriteFile
// pattern.
package savepoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/natefinch/atomic"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/xct"
)

const (
	magic        = "HKSP"
	formatVersion = 1
	headerSize    = 4 + 2 + 2 // magic + version + logger count
	loggerRecordSize = 4 * 4  // oldest_ordinal, oldest_offset, current_ordinal, current_offset_durable
	trailerSize   = 4         // CRC32-C
)

// LoggerPosition is the replay position one logger (in this core, one
// epoch-ticker generation's worth of applied writes) has reached.
type LoggerPosition struct {
	OldestOrdinal       uint32
	OldestOffset        uint32
	CurrentOrdinal      uint32
	CurrentOffsetDurable uint32
}

// Savepoint is the full persisted durability checkpoint.
type Savepoint struct {
	CurrentEpoch xct.Epoch
	DurableEpoch xct.Epoch
	Loggers      []LoggerPosition
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Marshal encodes s into the on-disk binary layout.
func (s Savepoint) Marshal() ([]byte, error) {
	if len(s.Loggers) > 0xFFFF {
		return nil, errs.Newf(errs.ErrDependentModuleUnavailable, "savepoint: too many loggers (%d)", len(s.Loggers))
	}
	buf := make([]byte, headerSize+8+8+len(s.Loggers)*loggerRecordSize+trailerSize)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(s.Loggers)))
	off := headerSize
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(s.CurrentEpoch))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(s.DurableEpoch))
	off += 8
	for _, lp := range s.Loggers {
		binary.LittleEndian.PutUint32(buf[off:off+4], lp.OldestOrdinal)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], lp.OldestOffset)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], lp.CurrentOrdinal)
		binary.LittleEndian.PutUint32(buf[off+12:off+16], lp.CurrentOffsetDurable)
		off += loggerRecordSize
	}
	crc := crc32.Checksum(buf[:off], crcTable)
	binary.LittleEndian.PutUint32(buf[off:off+4], crc)
	return buf, nil
}

// Unmarshal decodes buf into a Savepoint, validating the magic, version,
// declared size, and trailing CRC.
func Unmarshal(buf []byte) (Savepoint, error) {
	if len(buf) < headerSize+8+8+trailerSize {
		return Savepoint{}, errs.New(errs.ErrNotFound, "savepoint: file too small")
	}
	if string(buf[0:4]) != magic {
		return Savepoint{}, errs.New(errs.ErrDependentModuleUnavailable, "savepoint: bad magic")
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != formatVersion {
		return Savepoint{}, errs.Newf(errs.ErrDependentModuleUnavailable, "savepoint: version %d unsupported", version)
	}
	loggerCount := int(binary.LittleEndian.Uint16(buf[6:8]))
	want := headerSize + 8 + 8 + loggerCount*loggerRecordSize + trailerSize
	if len(buf) != want {
		return Savepoint{}, errs.Newf(errs.ErrNotFound, "savepoint: size %d does not match header (want %d)", len(buf), want)
	}
	body := buf[:len(buf)-trailerSize]
	wantCRC := binary.LittleEndian.Uint32(buf[len(buf)-trailerSize:])
	if gotCRC := crc32.Checksum(body, crcTable); gotCRC != wantCRC {
		return Savepoint{}, errs.New(errs.ErrDependentModuleUnavailable, "savepoint: CRC mismatch")
	}

	off := headerSize
	cur := xct.Epoch(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	dur := xct.Epoch(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	loggers := make([]LoggerPosition, loggerCount)
	for i := range loggers {
		loggers[i] = LoggerPosition{
			OldestOrdinal:        binary.LittleEndian.Uint32(buf[off : off+4]),
			OldestOffset:         binary.LittleEndian.Uint32(buf[off+4 : off+8]),
			CurrentOrdinal:       binary.LittleEndian.Uint32(buf[off+8 : off+12]),
			CurrentOffsetDurable: binary.LittleEndian.Uint32(buf[off+12 : off+16]),
		}
		off += loggerRecordSize
	}
	return Savepoint{CurrentEpoch: cur, DurableEpoch: dur, Loggers: loggers}, nil
}

// Save atomically persists s to path: the full content is written to a
// temporary file in the same directory and renamed over path, so a crash
// mid-write never leaves a torn savepoint file behind.
func Save(path string, s Savepoint) error {
	buf, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("savepoint: atomic write %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the savepoint at path.
func Load(path string) (Savepoint, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Savepoint{}, errs.Newf(errs.ErrNotFound, "savepoint: %s does not exist", path)
		}
		return Savepoint{}, fmt.Errorf("savepoint: read %s: %w", path, err)
	}
	return Unmarshal(buf)
}
