//go:build !linux && !darwin

package installer

import "runtime"

func hostMachine() string {
	return runtime.GOARCH
}
