//go:build !windows

package secure

import (
	"golang.org/x/sys/unix"
)

// mlock attempts to keep the region out of swap. Returns true on success.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}
