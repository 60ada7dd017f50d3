package hash

import (
	"bytes"
	"testing"

	"github.com/numahash/hashkv/internal/xct"
)

func TestMigrateRecordMarksOriginalSlotMoved(t *testing.T) {
	hs := newTestStorage(t, 4, 64)
	var buf xct.AccessBuffers
	key := []byte("migrate-me")
	if err := hs.InsertRecord(key, []byte("small"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	loc, found, err := hs.LocateRecord(key, hs.combo(key), &buf, true)
	if err != nil || !found {
		t.Fatalf("LocateRecord before migration: found=%v err=%v", found, err)
	}
	originalPage, originalIdx := loc.Page, loc.SlotIndex

	moved, err := hs.MigrateRecord(loc, 1024, 0)
	if err != nil {
		t.Fatalf("MigrateRecord: %v", err)
	}

	origSlot := originalPage.Slot(originalIdx)
	if !origSlot.XID.Load().IsMoved() {
		t.Fatal("the original slot must carry the moved bit after MigrateRecord")
	}
	newSlot := moved.Page.Slot(moved.SlotIndex)
	if newSlot.XID.Load().IsMoved() {
		t.Fatal("the new slot must not itself be marked moved")
	}
	if !bytes.Equal(newSlot.Key, key) {
		t.Fatalf("the migrated slot's key = %q, want %q", newSlot.Key, key)
	}
	if string(newSlot.Payload) != "small" {
		t.Fatalf("the migrated slot's payload = %q, want %q", newSlot.Payload, "small")
	}
}

func TestMigrateRecordTwiceFails(t *testing.T) {
	hs := newTestStorage(t, 4, 64)
	var buf xct.AccessBuffers
	key := []byte("twice")
	if err := hs.InsertRecord(key, []byte("v"), 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	loc, found, err := hs.LocateRecord(key, hs.combo(key), &buf, true)
	if err != nil || !found {
		t.Fatalf("LocateRecord: found=%v err=%v", found, err)
	}
	if _, err := hs.MigrateRecord(loc, 64, 0); err != nil {
		t.Fatalf("first MigrateRecord: %v", err)
	}
	// loc still refers to the now-moved original slot; migrating it again
	// must be rejected rather than silently double-moving.
	if _, err := hs.MigrateRecord(loc, 128, 0); err == nil {
		t.Fatal("migrating an already-moved slot a second time should fail")
	}
}

func TestMigrationPreservesPayloadBytesExactly(t *testing.T) {
	hs := newTestStorage(t, 4, 64)
	var buf xct.AccessBuffers
	key := []byte("exact-bytes")
	payload := []byte{0x00, 0xFF, 0x10, 0x20, 0xAA, 0x55}
	if err := hs.InsertRecord(key, payload, 1, 1, 0, &buf); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	// force a migration by upserting a payload larger than the tiny
	// original physical capacity.
	bigger := append(append([]byte(nil), payload...), make([]byte, 100)...)
	if err := hs.UpsertRecord(key, bigger, 1, 2, 0, &buf); err != nil {
		t.Fatalf("UpsertRecord: %v", err)
	}
	got, found, err := hs.GetRecord(key, &buf)
	if err != nil || !found {
		t.Fatalf("GetRecord: found=%v err=%v", found, err)
	}
	if !bytes.Equal(got, bigger) {
		t.Fatalf("payload bytes not preserved exactly across migration: got %x, want %x", got, bigger)
	}
}
