package hints

// Notes:
// - ForBrowserConnect tests cannot use t.Parallel() because they:
//   1. Use t.Setenv() which modifies process environment
//   2. Modify the package-level IsInContainer variable
// These are acceptable gaps: we test observable behavior through environment manipulation.

import (
	"strings"
	"testing"
)

func clearCI(t *testing.T) {
	t.Helper()
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		t.Setenv(name, "")
	}
}

func withContainer(t *testing.T, in bool) {
	t.Helper()
	orig := IsInContainer
	t.Cleanup(func() { IsInContainer = orig })
	IsInContainer = func() bool { return in }
}

func TestForBrowserConnect(t *testing.T) {
	tests := []struct {
		name        string
		container   bool
		ci          string
		noSandbox   string
		browserBin  string
		docconvBin  string
		wantSandbox bool
		wantBin     bool
	}{
		{name: "in CI", ci: "true", wantSandbox: true, wantBin: true},
		{name: "in Docker", container: true, wantSandbox: true, wantBin: true},
		{name: "sandbox already disabled", container: true, noSandbox: "1", wantBin: true},
		{name: "rod bin set", browserBin: "/usr/bin/chrome"},
		{name: "docconv bin set", docconvBin: "/usr/bin/chrome"},
		{name: "all configured", container: true, ci: "true", noSandbox: "1", browserBin: "/usr/bin/chrome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withContainer(t, tt.container)
			clearCI(t)
			t.Setenv("CI", tt.ci)
			t.Setenv("ROD_NO_SANDBOX", tt.noSandbox)
			t.Setenv("ROD_BROWSER_BIN", tt.browserBin)
			t.Setenv("DOCCONV_BROWSER_BIN", tt.docconvBin)

			hint := ForBrowserConnect()

			if got := strings.Contains(hint, "ROD_NO_SANDBOX"); got != tt.wantSandbox {
				t.Errorf("sandbox hint = %v, want %v (%q)", got, tt.wantSandbox, hint)
			}
			if got := strings.Contains(hint, "DOCCONV_BROWSER_BIN"); got != tt.wantBin {
				t.Errorf("browser bin hint = %v, want %v (%q)", got, tt.wantBin, hint)
			}
			if !tt.wantSandbox && !tt.wantBin && hint != "" {
				t.Errorf("expected empty hint, got %q", hint)
			}
		})
	}
}

func TestInCI(t *testing.T) {
	clearCI(t)
	if InCI() {
		t.Error("InCI() = true with no CI variables")
	}
	t.Setenv("GITLAB_CI", "true")
	if !InCI() {
		t.Error("InCI() = false with GITLAB_CI set")
	}
}

func TestForUnavailableTools(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hint     string
		contains string
	}{
		{name: "office windows", hint: ForOfficeUnavailable("windows"), contains: "Microsoft Office"},
		{name: "office linux", hint: ForOfficeUnavailable("linux"), contains: "libreoffice"},
		{name: "office mac", hint: ForOfficeUnavailable("darwin"), contains: "brew"},
		{name: "poppler linux", hint: ForPDFEngineUnavailable("linux"), contains: "poppler-utils"},
		{name: "poppler windows", hint: ForPDFEngineUnavailable("windows"), contains: "choco"},
		{name: "poppler mac", hint: ForPDFEngineUnavailable("darwin"), contains: "brew install poppler"},
		{name: "browser download allowed", hint: ForBrowserUnavailable(true), contains: "network"},
		{name: "browser download disabled", hint: ForBrowserUnavailable(false), contains: "allowDownload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !strings.Contains(tt.hint, tt.contains) {
				t.Errorf("hint %q does not contain %q", tt.hint, tt.contains)
			}
		})
	}
}

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		paths    []string
		contains string
	}{
		{name: "empty paths", paths: []string{}, contains: "--config"},
		{name: "unix user dir", paths: []string{"./foo.yaml", "/home/u/.config/go-docconv/foo.yaml"}, contains: "create /home/u/.config/go-docconv/foo.yaml"},
		{name: "windows user dir", paths: []string{`C:\Users\u\AppData\Roaming\go-docconv\foo.yaml`}, contains: `create C:\Users`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hint := ForConfigNotFound(tt.paths)
			if !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestFormat_Consistency(t *testing.T) {
	t.Parallel()

	// All hints should start with newline, spaces, and "hint:"
	hints := []string{
		ForTimeout(),
		ForOutputDirectory(),
		ForCancelled(),
		ForOfficeUnavailable("linux"),
		ForPDFEngineUnavailable("linux"),
		ForBrowserUnavailable(true),
		ForConfigNotFound(nil),
	}

	for _, h := range hints {
		if !strings.HasPrefix(h, "\n  hint: ") {
			t.Errorf("hint format inconsistent: %q", h)
		}
	}
	if formatHints(nil) != "" {
		t.Error("formatHints(nil) should be empty")
	}
}
