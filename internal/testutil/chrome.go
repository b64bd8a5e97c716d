// Package testutil provides shared helpers for tests that exercise the
// driver against either a real Chromium binary or a scripted stand-in for
// one. There is no debugging port to dial in pipe mode, so what's worth
// sharing is finding a real binary (for the handful of tests that want
// one) and building a minimal fd-3/fd-4 echo script (for the many that
// don't).
package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"testing"
)

// FindChrome locates a Chromium or Chrome binary on the system, checking
// PATH first and then the usual per-OS install locations. Returns "" if
// none is found.
func FindChrome() string {
	if path, err := exec.LookPath("chromium"); err == nil {
		return path
	}
	if path, err := exec.LookPath("chromium-browser"); err == nil {
		return path
	}
	if path, err := exec.LookPath("google-chrome"); err == nil {
		return path
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	case "linux":
		paths = []string{
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/snap/bin/chromium",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// RequireChrome skips the test unless a real browser binary is available,
// for the small set of tests that want to launch one rather than a
// scripted stand-in. Returns the resolved path.
func RequireChrome(t *testing.T) string {
	t.Helper()
	path := FindChrome()
	if path == "" {
		t.Skip("no chromium/chrome binary found; skipping")
	}
	return path
}

// EchoScript is a shell script that stands in for Chromium in pipe mode:
// it inherits fds 3 and 4 the same way the real browser does and echoes
// whatever it reads on fd 3 back out on fd 4, byte for byte. Tests that
// only care about framing and plumbing, not actual CDP semantics, write
// this to a temp file and point launcher.Config.ChromePath at it.
const EchoScript = "#!/bin/sh\nexec cat <&3 >&4\n"

// WriteEchoScript writes EchoScript to a temp file and returns its path,
// cleaned up automatically at test end.
func WriteEchoScript(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "fake-chromium-*.sh")
	if err != nil {
		t.Fatalf("creating fake chromium script: %v", err)
	}
	if _, err := f.WriteString(EchoScript); err != nil {
		t.Fatalf("writing fake chromium script: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing fake chromium script: %v", err)
	}
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		t.Fatalf("chmod fake chromium script: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}
