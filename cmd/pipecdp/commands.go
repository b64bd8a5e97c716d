package main

import (
	"context"
	"fmt"

	"github.com/pipecdp/pipecdp/internal/chrome"
	"github.com/pipecdp/pipecdp/internal/launcher"
)

func (cfg *Config) browserConfig() chrome.Config {
	return chrome.Config{
		Config: launcher.Config{
			ChromePath: cfg.ChromePath,
			Headless:   cfg.Headless,
		},
		FirstTabTimeout: cfg.Timeout,
	}
}

func startBrowser(ctx context.Context, cfg *Config) (*chrome.Browser, error) {
	if !cfg.Quiet {
		fmt.Fprintln(cfg.Stderr, "pipecdp: launching chromium...")
	}
	b, err := chrome.Start(ctx, cfg.browserConfig())
	if err != nil {
		return nil, fmt.Errorf("launching chromium: %w", err)
	}
	return b, nil
}

type versionResult struct {
	Product         string `json:"product"`
	ProtocolVersion string `json:"protocol_version"`
	UserAgent       string `json:"user_agent"`
}

func (r versionResult) textValue() string { return r.Product }

func cmdVersion(ctx context.Context, cfg *Config, args []string) int {
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	v, err := b.Version(ctx)
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, versionResult{Product: v.Product, ProtocolVersion: v.ProtocolVersion, UserAgent: v.UserAgent})
}

type urlResult struct {
	URL string `json:"url"`
}

func (r urlResult) textValue() string { return r.URL }

func cmdGoto(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 1 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp goto <url>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab, err := b.Navigate(ctx, args[0])
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, urlResult{URL: tab.URL()})
}

type evalResult struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

func (r evalResult) textValue() string { return r.Value }

func cmdEval(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 1 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp eval <expression>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab := b.FirstTab()
	obj, err := tab.Eval(ctx, args[0], true)
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, evalResult{Type: obj.Type, Value: string(obj.Value)})
}

type htmlResult struct {
	HTML string `json:"html"`
}

func (r htmlResult) textValue() string { return r.HTML }

func cmdQuery(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 2 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp query <url> <selector>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab, err := b.Navigate(ctx, args[0])
	if err != nil {
		return outputError(cfg, err)
	}
	elem, err := tab.FindElem(ctx, args[1])
	if err != nil {
		return outputError(cfg, err)
	}
	if elem == nil {
		return outputError(cfg, fmt.Errorf("no element matches %q", args[1]))
	}
	html, err := elem.HTML(ctx)
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, htmlResult{HTML: html})
}

type textResult struct {
	Text string `json:"text"`
}

func (r textResult) textValue() string { return r.Text }

func cmdText(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 2 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp text <url> <selector>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab, err := b.Navigate(ctx, args[0])
	if err != nil {
		return outputError(cfg, err)
	}
	elem, err := tab.WaitForElem(ctx, args[1], cfg.Timeout)
	if err != nil {
		return outputError(cfg, err)
	}
	text, err := elem.Text(ctx)
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, textResult{Text: text})
}

type okResult struct {
	OK bool `json:"ok"`
}

func (r okResult) textValue() string {
	if r.OK {
		return "ok"
	}
	return "failed"
}

type clickResult struct {
	OK        bool `json:"ok"`
	Navigated bool `json:"navigated"`
}

func (r clickResult) textValue() string {
	if !r.OK {
		return "failed"
	}
	if r.Navigated {
		return "ok (navigated)"
	}
	return "ok"
}

func cmdClick(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 2 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp click <url> <selector>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab, err := b.Navigate(ctx, args[0])
	if err != nil {
		return outputError(cfg, err)
	}
	elem, err := tab.WaitForElem(ctx, args[1], cfg.Timeout)
	if err != nil {
		return outputError(cfg, err)
	}
	navigatedTab, err := elem.Click(ctx)
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, clickResult{OK: true, Navigated: navigatedTab != nil})
}

func cmdType(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 3 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp type <url> <selector> <text>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab, err := b.Navigate(ctx, args[0])
	if err != nil {
		return outputError(cfg, err)
	}
	elem, err := tab.WaitForElem(ctx, args[1], cfg.Timeout)
	if err != nil {
		return outputError(cfg, err)
	}
	if err := elem.Type(ctx, args[2]); err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, okResult{OK: true})
}

func cmdWait(ctx context.Context, cfg *Config, args []string) int {
	if len(args) < 2 {
		return outputError(cfg, fmt.Errorf("usage: pipecdp wait <url> <selector>"))
	}
	b, err := startBrowser(ctx, cfg)
	if err != nil {
		return outputError(cfg, err)
	}
	defer b.Close(context.Background())

	tab, err := b.Navigate(ctx, args[0])
	if err != nil {
		return outputError(cfg, err)
	}
	_, err = tab.WaitForElem(ctx, args[1], cfg.Timeout)
	if err != nil {
		return outputError(cfg, err)
	}
	return outputResult(cfg, okResult{OK: true})
}
