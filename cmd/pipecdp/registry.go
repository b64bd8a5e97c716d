package main

import (
	"context"
	"sort"
)

// commandInfo describes one CLI subcommand: a one-line description for
// the usage listing and the function that runs it.
type commandInfo struct {
	Desc string
	Run  func(ctx context.Context, cfg *Config, args []string) int
}

var commands = map[string]commandInfo{
	"version": {Desc: "print the Chromium version string", Run: cmdVersion},
	"goto":    {Desc: "goto <url>: launch Chromium and navigate to url", Run: cmdGoto},
	"eval":    {Desc: "eval <expression>: evaluate expression in the first tab (about:blank)", Run: cmdEval},
	"query":   {Desc: "query <url> <selector>: find one element, print its outer HTML", Run: cmdQuery},
	"text":    {Desc: "text <url> <selector>: find one element, print its inner text", Run: cmdText},
	"click":   {Desc: "click <url> <selector>: find one element and click it", Run: cmdClick},
	"type":    {Desc: "type <url> <selector> <text>: find one element and type into it", Run: cmdType},
	"wait":    {Desc: "wait <url> <selector>: wait for a selector to appear", Run: cmdWait},
}

func sortedCommandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
