package hash

import "testing"

func TestPackPointerRoundTrip(t *testing.T) {
	for _, nodeID := range []int{0, 1, 5, 255} {
		for _, off := range []uint32{0, 1, 0xABCDEF, offsetMask} {
			ptr := packPointer(nodeID, off)
			gotNode, gotOff := unpackPointer(ptr)
			if gotNode != nodeID || gotOff != off {
				t.Fatalf("packPointer(%d,%d) round trip = (%d,%d)", nodeID, off, gotNode, gotOff)
			}
		}
	}
}

func TestPackPointerDistinctNodesDistinctPointers(t *testing.T) {
	a := packPointer(0, 42)
	b := packPointer(1, 42)
	if a == b {
		t.Fatal("the same offset on different NUMA nodes must pack to different pointers")
	}
}

func TestPageDirectoryPutGet(t *testing.T) {
	dir := NewPageDirectory()
	ip := NewIntermediatePage(0)
	dir.putIntermediate(7, ip)
	got, ok := dir.getIntermediate(7)
	if !ok || got != ip {
		t.Fatalf("getIntermediate(7) = (%v,%v), want (%v,true)", got, ok, ip)
	}
	if _, ok := dir.getIntermediate(99); ok {
		t.Fatal("getIntermediate should report false for a pointer never stored")
	}

	dp := NewDataPage(3)
	dir.putData(8, dp)
	gotDP, ok := dir.getData(8)
	if !ok || gotDP != dp {
		t.Fatalf("getData(8) = (%v,%v), want (%v,true)", gotDP, ok, dp)
	}
}
