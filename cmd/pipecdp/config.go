package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// fileConfig is the JSON shape of a .pipecdprc file, read from the
// current directory or the user's home directory.
type fileConfig struct {
	ChromePath *string `json:"chrome_path,omitempty"`
	Timeout    *string `json:"timeout,omitempty"`
	Output     *string `json:"output,omitempty"`
	Headless   *bool   `json:"headless,omitempty"`
}

func loadConfigFile(cfg *Config) {
	paths := []string{filepath.Join(".", ".pipecdprc")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pipecdprc"))
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var fc fileConfig
		if err := json.Unmarshal(data, &fc); err != nil {
			continue
		}
		applyFileConfig(cfg, &fc)
		return
	}
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ChromePath != nil {
		cfg.ChromePath = *fc.ChromePath
	}
	if fc.Timeout != nil {
		if d, err := time.ParseDuration(*fc.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Headless != nil {
		cfg.Headless = *fc.Headless
	}
}

// applyEnv layers PIPECDP_* environment variables over the config-file
// values; flags applied afterward take precedence over both.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PIPECDP_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("PIPECDP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("PIPECDP_OUTPUT"); v != "" {
		cfg.Output = v
	}
}
