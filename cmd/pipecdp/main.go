// Command pipecdp drives a single Chromium session from the shell: launch,
// run one operation against the first tab, print the result, shut down.
// Each invocation launches its own browser rather than attaching to an
// already-running one by port — pipe mode has no port to attach to.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// Exit codes. ExitLaunchFail and ExitTimeout are declared, but no command
// returns them: every failure, a failed launch or a timeout included,
// exits with ExitError.
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitLaunchFail = 2
	ExitTimeout    = 3
)

// Config holds the CLI's resolved configuration, layered defaults → config
// file → environment → flags, each stage overriding the last.
type Config struct {
	ChromePath string
	Timeout    time.Duration
	Output     string // json, ndjson, text
	Headless   bool
	Quiet      bool

	Stdout io.Writer
	Stderr io.Writer
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		Output:   "json",
		Headless: true,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

func run(args []string, cfg *Config) int {
	loadConfigFile(cfg)
	applyEnv(cfg)

	fs := flag.NewFlagSet("pipecdp", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.StringVar(&cfg.ChromePath, "chrome", cfg.ChromePath, "path to the Chromium binary")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-command timeout")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "output format: json, ndjson, text")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "run Chromium headless")
	fs.BoolVar(&cfg.Quiet, "quiet", cfg.Quiet, "suppress non-result output")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(cfg)
		return ExitError
	}

	name := rest[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "pipecdp: unknown command %q\n", name)
		printUsage(cfg)
		return ExitError
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	return cmd.Run(ctx, cfg, rest[1:])
}

func printUsage(cfg *Config) {
	fmt.Fprintln(cfg.Stderr, "usage: pipecdp [flags] <command> [args]")
	fmt.Fprintln(cfg.Stderr, "")
	for _, name := range sortedCommandNames() {
		fmt.Fprintf(cfg.Stderr, "  %-10s %s\n", name, commands[name].Desc)
	}
}
