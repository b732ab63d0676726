package bridge

import (
	"context"

	"github.com/vedantwpatil/cursor-bridge/internal/tracking"
)

const CommandCursorPosition = "cursor_position"

// RegisterCursorCommands binds cursor_position to a pointer query against f.
// A nil f queries the host directly.
func RegisterCursorCommands(reg *Registry, f tracking.Facility) {
	reg.Register(CommandCursorPosition, func(context.Context) (any, error) {
		pos, err := tracking.Query(f)
		if err != nil {
			return nil, err
		}
		return pos, nil
	})
}
