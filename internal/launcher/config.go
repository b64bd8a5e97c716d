package launcher

import (
	"fmt"
	"os"
	"time"
)

// Config enumerates the recognized launch options. WithDefaults fills in
// ChromePath and StartupTimeout when they are empty; every other field is
// used exactly as the caller set it.
type Config struct {
	// ChromePath is the browser binary to exec. Empty means "resolve from
	// PIPECDP_CHROME_PATH, falling back to chromium on PATH".
	ChromePath string

	// UserDataDir is the profile directory. Empty means "allocate a fresh
	// temp dir, and always clean it up regardless of CleanDataDir".
	UserDataDir string

	// CleanDataDir wipes UserDataDir before launch and again on close when
	// true. A caller-supplied dir is left alone when false; a dir we
	// allocated ourselves is removed either way. WithDefaults does not set
	// it, so the zero value (false) keeps a caller-supplied dir.
	CleanDataDir bool

	// Headless runs without a visible window. WithDefaults does not set it,
	// so the zero value (false) launches a headful browser.
	Headless bool

	// ExtraArgs are appended after the default flag set. An entry in
	// ExtraArgs of the exact form "-no-<flag>" suppresses a default flag
	// of the same name instead of being passed through, letting callers
	// override automation-hygiene defaults they specifically don't want.
	ExtraArgs []string

	// Env is applied on top of the parent process environment.
	Env map[string]string

	// StartupTimeout bounds how long Browser.Start waits for the first
	// page target to attach (default 30s).
	StartupTimeout time.Duration
}

// WithDefaults returns a copy of cfg with an empty ChromePath and a zero
// StartupTimeout replaced by their defaults. Boolean fields are left as
// they are.
func (cfg Config) WithDefaults() Config {
	if cfg.ChromePath == "" {
		cfg.ChromePath = os.Getenv("PIPECDP_CHROME_PATH")
	}
	if cfg.ChromePath == "" {
		cfg.ChromePath = "chromium"
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = 30 * time.Second
	}
	return cfg
}

// defaultFlags are the curated automation-hygiene flags applied at
// minimum, beyond --remote-debugging-pipe and --user-data-dir which are
// assembled separately since they depend on runtime state.
var defaultFlags = []string{
	"--no-first-run",
	"--no-default-browser-check",
	"--disable-crash-reporter",
	"--disable-translate",
	"--disable-background-networking",
	"--disable-sync",
	"--disable-extensions",
	"--disable-component-update",
	"--metrics-recording-only",
}

// BuildArgv assembles the child's argv: chrome_path, default
// flags (minus any the caller suppressed via "-no-<flag>" in ExtraArgs),
// --remote-debugging-pipe, --user-data-dir, headless flag if requested,
// then the caller's remaining extra args, then the initial blank page.
func (cfg Config) BuildArgv(dataDir string) []string {
	const suppressPrefix = "-no-"
	suppressed := make(map[string]bool)
	var passthrough []string
	for _, a := range cfg.ExtraArgs {
		if len(a) > len(suppressPrefix) && a[:len(suppressPrefix)] == suppressPrefix {
			suppressed["--"+a[len(suppressPrefix):]] = true
			continue
		}
		passthrough = append(passthrough, a)
	}

	argv := []string{cfg.ChromePath}
	for _, f := range defaultFlags {
		if !suppressed[f] {
			argv = append(argv, f)
		}
	}
	argv = append(argv, "--remote-debugging-pipe")
	argv = append(argv, fmt.Sprintf("--user-data-dir=%s", dataDir))
	if cfg.Headless {
		argv = append(argv, "--headless=new")
	}
	argv = append(argv, passthrough...)
	argv = append(argv, "about:blank")
	return argv
}

// BuildEnv overlays cfg.Env on top of the parent process environment.
func (cfg Config) BuildEnv() []string {
	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
