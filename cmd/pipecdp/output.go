package main

import (
	"encoding/json"
	"fmt"
)

// textValuer lets a result type supply its own plain-text rendering for
// -output text; result types without one fall back to JSON.
type textValuer interface {
	textValue() string
}

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		if err := json.NewEncoder(cfg.Stdout).Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(textValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.textValue())
		} else {
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}

func outputError(cfg *Config, err error) int {
	fmt.Fprintf(cfg.Stderr, "pipecdp: %v\n", err)
	return ExitError
}
