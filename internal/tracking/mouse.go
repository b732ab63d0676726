package tracking

import "errors"

// Facility is the host's device-state query: it reports where the pointer
// is right now. Implementations must not keep mutable state between calls.
type Facility interface {
	Location() (x, y int, err error)
}

// Query takes a single snapshot of the pointer position from f, or from
// the host's DeviceState when f is nil.
//
// On failure the returned position is the zero value and must be ignored;
// the error always carries a non-empty message.
func Query(f Facility) (CursorPosition, error) {
	if f == nil {
		f = DeviceState{}
	}

	x, y, err := f.Location()
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			return CursorPosition{}, err
		}
		return CursorPosition{}, &QueryError{Kind: KindUnavailable, Msg: "device query failed", Err: err}
	}

	return CursorPosition{X: toInt32(x), Y: toInt32(y)}, nil
}
