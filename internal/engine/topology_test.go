package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/numahash/hashkv/internal/logging"
)

func TestDiscoverTopologyAlwaysReturnsAtLeastOneUsableNode(t *testing.T) {
	nodes := DiscoverTopology(logging.Default())
	if len(nodes) == 0 {
		t.Fatal("DiscoverTopology must return at least one node, falling back if necessary")
	}
	seen := make(map[int]bool)
	for _, n := range nodes {
		if seen[n.ID] {
			t.Fatalf("duplicate node ID %d", n.ID)
		}
		seen[n.ID] = true
		if len(n.CPUs) == 0 {
			t.Fatalf("node %d has no CPUs", n.ID)
		}
	}
}

func TestReadCPUListParsesRangesAndSingles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpulist")
	if err := os.WriteFile(path, []byte("0-3,8,10-11\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cpus, err := readCPUList(path)
	if err != nil {
		t.Fatalf("readCPUList: %v", err)
	}
	want := []int{0, 1, 2, 3, 8, 10, 11}
	if len(cpus) != len(want) {
		t.Fatalf("readCPUList = %v, want %v", cpus, want)
	}
	for i, c := range want {
		if cpus[i] != c {
			t.Fatalf("readCPUList[%d] = %d, want %d", i, cpus[i], c)
		}
	}
}

func TestReadCPUListMissingFile(t *testing.T) {
	if _, err := readCPUList(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("readCPUList should fail for a nonexistent file")
	}
}

func TestSingleNodeFallbackCoversAllCPUs(t *testing.T) {
	nodes := singleNodeFallback()
	if len(nodes) != 1 {
		t.Fatalf("singleNodeFallback returned %d nodes, want 1", len(nodes))
	}
	if nodes[0].ID != 0 {
		t.Fatalf("singleNodeFallback node ID = %d, want 0", nodes[0].ID)
	}
	if len(nodes[0].CPUs) == 0 {
		t.Fatal("singleNodeFallback must list at least one CPU")
	}
}
