// Package chrome implements the Browser, Tab, and Elem object model on
// top of internal/session's Multiplexer and internal/transport's pipe
// Transport.
package chrome

import (
	"time"

	"github.com/pipecdp/pipecdp/internal/launcher"
)

// Config is the full set of recognized options, layered over
// internal/launcher.Config which owns the subset the Process Supervisor
// needs directly.
type Config struct {
	launcher.Config

	// FirstTabTimeout bounds how long Start waits for the first page
	// target to attach before failing. Falls back to StartupTimeout when
	// zero.
	FirstTabTimeout time.Duration
}

func (cfg Config) withDefaults() Config {
	cfg.Config = cfg.Config.WithDefaults()
	if cfg.FirstTabTimeout == 0 {
		cfg.FirstTabTimeout = cfg.Config.StartupTimeout
	}
	return cfg
}
