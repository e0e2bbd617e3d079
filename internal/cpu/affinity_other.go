//go:build !linux

package cpu

import (
	"runtime"
)

// PinWorker locks the calling goroutine to its OS thread.
// Core pinning is only available on Linux, so core is always -1.
func PinWorker(workerID int) (release func(), core int, err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, -1, nil
}
