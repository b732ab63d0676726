//go:build !linux && !darwin && !windows

package tracking

import "runtime"

// DeviceState has no backend on this platform.
type DeviceState struct{}

func (DeviceState) Location() (int, int, error) {
	return 0, 0, newQueryError(KindUnsupported, "no pointer backend for %s", runtime.GOOS)
}
