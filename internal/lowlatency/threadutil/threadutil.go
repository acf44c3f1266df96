// Package threadutil spawns named, optionally CPU-pinned worker goroutines.
// Go has no first-class 1:1 OS-thread API, so pinning locks the spawned
// goroutine to its underlying OS thread with runtime.LockOSThread and then
// best-effort restricts that thread's scheduling affinity on Linux. Failure
// to pin is logged and otherwise ignored.
package threadutil

import (
	"runtime"

	"github.com/abdoElHodaky/nitek-ome/internal/lowlatency/logger"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// NoCore means "do not attempt CPU pinning".
const NoCore = -1

// Spawn starts fn on a dedicated goroutine named name, locked to its own OS
// thread. If coreID >= 0, it additionally attempts to pin that OS thread to
// the given CPU core; a failure to do so is logged at Warn and is
// non-fatal. Spawn returns immediately; the caller decides how to wait for
// fn to finish (e.g. via a context or a done channel closed inside fn).
func Spawn(coreID int, name string, log *logger.AsyncLogger, fn func()) {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if coreID >= 0 {
			if err := pin(coreID); err != nil {
				log.Warn("failed to pin thread to core",
					zap.String("thread", name),
					zap.Int("core", coreID),
					zap.Error(err))
			}
		}
		fn()
	}()
}

// pin restricts the calling OS thread's scheduling affinity to coreID.
func pin(coreID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	return unix.SchedSetaffinity(0, &set)
}
