//go:build linux || darwin || windows

package tracking

import (
	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
)

// DeviceState reads the pointer through robotgo. It has no fields, so a
// zero value can be built per call or shared across goroutines.
type DeviceState struct{}

// Location checks that a display is reachable and then reads the global
// pointer coordinates.
func (DeviceState) Location() (int, int, error) {
	if err := probe(); err != nil {
		return 0, 0, err
	}
	if screenshot.NumActiveDisplays() == 0 {
		return 0, 0, newQueryError(KindUnavailable, "no active displays")
	}

	x, y := robotgo.Location()
	return x, y, nil
}
