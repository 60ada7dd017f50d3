package savepoint

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/numahash/hashkv/internal/errs"
	"github.com/numahash/hashkv/internal/xct"
)

func sample() Savepoint {
	return Savepoint{
		CurrentEpoch: xct.Epoch(42),
		DurableEpoch: xct.Epoch(41),
		Loggers: []LoggerPosition{
			{OldestOrdinal: 1, OldestOffset: 0, CurrentOrdinal: 5, CurrentOffsetDurable: 4096},
			{OldestOrdinal: 2, OldestOffset: 128, CurrentOrdinal: 9, CurrentOffsetDurable: 8192},
		},
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	want := sample()
	buf, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestUnmarshalEmptyLoggers(t *testing.T) {
	want := Savepoint{CurrentEpoch: 7, DurableEpoch: 6}
	buf, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.CurrentEpoch != want.CurrentEpoch || got.DurableEpoch != want.DurableEpoch || len(got.Loggers) != 0 {
		t.Fatalf("Unmarshal(empty loggers) = %+v, want %+v", got, want)
	}
}

func TestUnmarshalRejectsBadMagic(t *testing.T) {
	buf, err := sample().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	buf[0] = 'X'
	if _, err := Unmarshal(buf); errs.CodeOf(err) != errs.ErrDependentModuleUnavailable {
		t.Fatalf("Unmarshal with corrupted magic: got %v", err)
	}
}

func TestUnmarshalRejectsBadVersion(t *testing.T) {
	buf, err := sample().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	buf[4] = 0xFF
	buf[5] = 0xFF
	if _, err := Unmarshal(buf); err == nil {
		t.Fatal("Unmarshal should reject an unsupported version")
	}
}

func TestUnmarshalRejectsCorruptedCRC(t *testing.T) {
	buf, err := sample().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	buf[len(buf)-1] ^= 0xFF
	if _, err := Unmarshal(buf); errs.CodeOf(err) != errs.ErrDependentModuleUnavailable {
		t.Fatalf("Unmarshal with flipped CRC byte: got %v", err)
	}
}

func TestUnmarshalRejectsTruncatedBuffer(t *testing.T) {
	buf, err := sample().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(buf[:len(buf)-6]); err == nil {
		t.Fatal("Unmarshal should reject a buffer whose size no longer matches the header")
	}
	if _, err := Unmarshal(buf[:4]); err == nil {
		t.Fatal("Unmarshal should reject a buffer too small to hold a header")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hashkv.savepoint")
	want := sample()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("Save/Load round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist")
	if _, err := Load(path); errs.CodeOf(err) != errs.ErrNotFound {
		t.Fatalf("Load of a missing file: got %v", err)
	}
}
