package engine

import (
	"golang.org/x/sys/unix"

	"github.com/numahash/hashkv/internal/logging"
)

// PinCurrentThread restricts the calling OS thread's scheduling affinity to
// cpus. Callers must have already called runtime.LockOSThread(), since
// affinity is a per-OS-thread property and Go only guarantees which OS
// thread a goroutine runs on between LockOSThread/UnlockOSThread.
//
// Failure (e.g. insufficient privilege, a sandboxed container, a
// non-Linux GOOS) is logged and otherwise ignored: pinning is a locality
// optimization, not a correctness requirement, so degrading to
// unpinned-but-functional is always preferable to refusing to start.
func PinCurrentThread(cpus []int, logger *logging.Logger) {
	if len(cpus) == 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		logger.Warnf("engine: SchedSetaffinity(%v) failed, running unpinned: %v", cpus, err)
	}
}
