//go:build linux || darwin

package installer

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// hostMachine asks the kernel for the machine name, like uname -m.
func hostMachine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return runtime.GOARCH
	}

	return unix.ByteSliceToString(uts.Machine[:])
}
