package engine

import (
	"runtime"

	"github.com/numahash/hashkv/internal/xct"
)

// ThreadContext is the per-worker handle a goroutine servicing requests
// holds for its lifetime: which NUMA node it is local to, and the
// transaction access buffers (read-set, write-set, pointer-set,
// page-version-set) its in-flight transaction accumulates.
type ThreadContext struct {
	NodeIdx int
	Buffers xct.AccessBuffers
}

// NewThreadContext returns a ThreadContext local to the nodeIdx'th entry of
// e.Topology/e.Nodes. It calls runtime.LockOSThread itself and then pins
// the calling OS thread to that node's CPU set. Callers should run this once
// per long-lived worker goroutine, before servicing any requests.
func (e *Engine) NewThreadContext(nodeIdx int) *ThreadContext {
	if nodeIdx < 0 || nodeIdx >= len(e.Topology) {
		nodeIdx = 0
	}
	runtime.LockOSThread()
	PinCurrentThread(e.Topology[nodeIdx].CPUs, e.Logger)
	return &ThreadContext{NodeIdx: nodeIdx}
}

// BeginXct resets the thread's access buffers for a new transaction.
func (tc *ThreadContext) BeginXct() {
	tc.Buffers.Reset()
}
