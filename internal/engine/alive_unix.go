//go:build !windows

package engine

import "golang.org/x/sys/unix"

// processAlive reports whether pid names a live process, using signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
