package launcher

import (
	"strings"
	"testing"
)

func TestBuildArgvIncludesRequiredFlags(t *testing.T) {
	cfg := Config{ChromePath: "chromium", Headless: true}.WithDefaults()
	argv := cfg.BuildArgv("/tmp/profile-1")

	joined := strings.Join(argv, " ")
	for _, want := range []string{"--remote-debugging-pipe", "--user-data-dir=/tmp/profile-1", "--headless=new"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("argv %q missing %q", joined, want)
		}
	}
	if argv[0] != "chromium" {
		t.Fatalf("argv[0] = %q, want chromium", argv[0])
	}
	if argv[len(argv)-1] != "about:blank" {
		t.Fatalf("argv should end with about:blank, got %q", argv[len(argv)-1])
	}
}

func TestBuildArgvSuppressesDefaultFlag(t *testing.T) {
	cfg := Config{ChromePath: "chromium", ExtraArgs: []string{"-no-disable-extensions"}}.WithDefaults()
	argv := cfg.BuildArgv("/tmp/profile-1")
	for _, a := range argv {
		if a == "--disable-extensions" {
			t.Fatalf("expected --disable-extensions to be suppressed, got argv %v", argv)
		}
	}
}

func TestBuildArgvHeadlessOff(t *testing.T) {
	cfg := Config{ChromePath: "chromium", Headless: false}.WithDefaults()
	argv := cfg.BuildArgv("/tmp/profile-1")
	for _, a := range argv {
		if strings.HasPrefix(a, "--headless") {
			t.Fatalf("did not expect a headless flag, got argv %v", argv)
		}
	}
}

func TestWithDefaultsChromePathFromEnv(t *testing.T) {
	t.Setenv("PIPECDP_CHROME_PATH", "/opt/chromium/chrome")
	cfg := Config{}.WithDefaults()
	if cfg.ChromePath != "/opt/chromium/chrome" {
		t.Fatalf("got ChromePath %q", cfg.ChromePath)
	}
}
