//go:build linux

package tracking

import (
	"errors"
	"io/fs"
	"os"
)

func probe() error {
	return probeEnv(os.Getenv)
}

// probeEnv decides whether an X server is reachable from the session
// environment. robotgo talks to X11 only; XWayland is fine, a bare
// Wayland session is not.
func probeEnv(getenv func(string) string) error {
	if getenv("DISPLAY") == "" {
		if getenv("WAYLAND_DISPLAY") != "" {
			return newQueryError(KindUnsupported, "wayland session without an X server")
		}
		return newQueryError(KindUnavailable, "DISPLAY is not set")
	}

	xauth := getenv("XAUTHORITY")
	if xauth == "" {
		return nil
	}
	f, err := os.Open(xauth)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return &QueryError{Kind: KindPermissionDenied, Msg: "cannot read X authority file", Err: err}
		}
		// A missing cookie file does not stop servers that allow local access.
		return nil
	}
	return f.Close()
}
