// Package engine wires the hash storage core to a NUMA-partitioned set of
// page pools, a storage registry, and an epoch clock, and hands out
// per-worker ThreadContext handles pinned to specific NUMA nodes.
package engine

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/numahash/hashkv/internal/logging"
)

// NodeTopology describes one NUMA node's logical CPU set.
type NodeTopology struct {
	ID   int
	CPUs []int
}

// DiscoverTopology reads /sys/devices/system/node/node*/cpulist to build
// the host's NUMA topology. If that path is unavailable (non-Linux, a
// container without /sys/devices/system/node mounted, or a genuinely
// single-node host), it falls back to a single synthetic node covering
// every logical CPU runtime.NumCPU() reports, so the engine always has at
// least one node to place pools on.
func DiscoverTopology(logger *logging.Logger) []NodeTopology {
	const nodeRoot = "/sys/devices/system/node"
	entries, err := os.ReadDir(nodeRoot)
	if err != nil {
		logger.Warnf("engine: NUMA topology unavailable (%v), falling back to a single node with %d CPUs", err, runtime.NumCPU())
		return singleNodeFallback()
	}

	var nodes []NodeTopology
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "node"))
		if err != nil {
			continue
		}
		cpus, err := readCPUList(filepath.Join(nodeRoot, e.Name(), "cpulist"))
		if err != nil || len(cpus) == 0 {
			continue
		}
		nodes = append(nodes, NodeTopology{ID: id, CPUs: cpus})
	}
	if len(nodes) == 0 {
		logger.Warnf("engine: %s had no usable node entries, falling back to a single node", nodeRoot)
		return singleNodeFallback()
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

func singleNodeFallback() []NodeTopology {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return []NodeTopology{{ID: 0, CPUs: cpus}}
}

// readCPUList parses a Linux cpulist file, e.g. "0-3,8,10-11".
func readCPUList(path string) ([]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cpus []int
	for _, part := range strings.Split(strings.TrimSpace(string(raw)), ",") {
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err1 := strconv.Atoi(lo)
			hiN, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				continue
			}
			for c := loN; c <= hiN; c++ {
				cpus = append(cpus, c)
			}
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				continue
			}
			cpus = append(cpus, n)
		}
	}
	return cpus, nil
}
