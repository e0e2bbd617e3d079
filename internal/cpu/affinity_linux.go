//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the current OS thread to the n-th core of the thread's
// allowed set. Must be called after runtime.LockOSThread().
func pinToCore(n int) (int, error) {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		return -1, err
	}
	cpuID := nthAllowed(&allowed, n)

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return -1, err
	}
	return cpuID, nil
}

// PinWorker locks the calling goroutine to its OS thread and pins that thread
// to a core derived from workerID. The returned release func must be deferred
// by the same goroutine. A pinned thread is never unlocked: it exits together
// with the goroutine so no other goroutine inherits the narrowed affinity.
func PinWorker(workerID int) (release func(), core int, err error) {
	runtime.LockOSThread()
	core, err = pinToCore(workerID)
	if err != nil {
		return runtime.UnlockOSThread, -1, err
	}
	return func() {}, core, nil
}

// nthAllowed returns the core at position n (mod the set size) in allowed,
// falling back to the normalized n when the set is empty.
func nthAllowed(allowed *unix.CPUSet, n int) int {
	count := allowed.Count()
	if count == 0 {
		return normalize(n)
	}
	if n < 0 {
		n = -n
	}
	n %= count

	for cpu := 0; ; cpu++ {
		if !allowed.IsSet(cpu) {
			continue
		}
		if n == 0 {
			return cpu
		}
		n--
	}
}
