package tracking

import "math"

// CursorPosition holds the pointer location in screen-space pixels.
// Multi-monitor setups may report negative values or values past the
// primary display's bounds; they are returned as the OS reports them.
type CursorPosition struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Add adds two CursorPositions.
func (p CursorPosition) Add(d CursorPosition) CursorPosition {
	return CursorPosition{X: p.X + d.X, Y: p.Y + d.Y}
}

// Subtract subtracts d from p.
func (p CursorPosition) Subtract(d CursorPosition) CursorPosition {
	return CursorPosition{X: p.X - d.X, Y: p.Y - d.Y}
}

// toInt32 narrows a coordinate, saturating at the int32 bounds so an
// out-of-range value never wraps around to the opposite sign.
func toInt32(v int) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
