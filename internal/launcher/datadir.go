package launcher

import (
	"fmt"
	"os"
)

// dataDir tracks the user data directory's lifecycle: a
// caller-supplied dir is only wiped if CleanDataDir asks for it; a dir we
// allocated ourselves is always removed on close regardless of policy.
type dataDir struct {
	path  string
	owned bool
	clean bool
}

// resolveDataDir implements the clean_data_dir lifecycle rules:
// remove an existing caller-supplied dir before launch when
// CleanDataDir is true; allocate and own a fresh temp dir when none was
// given.
func resolveDataDir(cfg Config) (*dataDir, error) {
	if cfg.UserDataDir == "" {
		dir, err := os.MkdirTemp("", "pipecdp-chrome-*")
		if err != nil {
			return nil, fmt.Errorf("allocating user data dir: %w", err)
		}
		return &dataDir{path: dir, owned: true, clean: true}, nil
	}

	if cfg.CleanDataDir {
		if err := os.RemoveAll(cfg.UserDataDir); err != nil {
			return nil, fmt.Errorf("cleaning user data dir %s: %w", cfg.UserDataDir, err)
		}
	}
	if err := os.MkdirAll(cfg.UserDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating user data dir %s: %w", cfg.UserDataDir, err)
	}
	return &dataDir{path: cfg.UserDataDir, owned: false, clean: cfg.CleanDataDir}, nil
}

// close removes the directory if policy calls for it: always when we
// allocated it ourselves, otherwise only when CleanDataDir was set.
func (d *dataDir) close() error {
	if d == nil || d.path == "" {
		return nil
	}
	if d.owned || d.clean {
		return os.RemoveAll(d.path)
	}
	return nil
}
