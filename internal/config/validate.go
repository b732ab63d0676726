package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Validate rejects settings the server cannot start with. A non-positive
// read header timeout is reset to the default instead.
func (c *Config) Validate() error {
	host, port, err := net.SplitHostPort(c.Server.Addr)
	if err != nil {
		return fmt.Errorf("server.addr %q: %w", c.Server.Addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("server.addr %q: invalid port %q", c.Server.Addr, port)
	}
	if host == "" {
		return fmt.Errorf("server.addr %q: host is required", c.Server.Addr)
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}

	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = defaultReadHeaderTimeoutSeconds
	}
	return nil
}
