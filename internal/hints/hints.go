// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a known CI environment variable is set.
func InCI() bool {
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for browser launch errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" && os.Getenv("DOCCONV_BROWSER_BIN") == "" {
		hints = append(hints, "set DOCCONV_BROWSER_BIN to use a custom Chrome or Edge")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the timeout of slow external tools.
func ForTimeout() string {
	return format("for large files, raise --office-timeout or DOCCONV_TIMEOUTS_OFFICE")
}

// ForOfficeUnavailable returns install hints when no office backend probed
// as available. goos is runtime.GOOS.
func ForOfficeUnavailable(goos string) string {
	switch goos {
	case "windows":
		return format("install Microsoft Office, WPS Office or LibreOffice")
	case "darwin":
		return format("install LibreOffice (brew install --cask libreoffice)")
	default:
		return format("install LibreOffice (e.g. apt install libreoffice-core) or set tools.soffice")
	}
}

// ForPDFEngineUnavailable returns install hints for the poppler tools.
func ForPDFEngineUnavailable(goos string) string {
	switch goos {
	case "windows":
		return format("install poppler (choco install poppler) and add its bin folder to PATH")
	case "darwin":
		return format("install poppler (brew install poppler)")
	default:
		return format("install poppler-utils (e.g. apt install poppler-utils)")
	}
}

// ForBrowserUnavailable returns a hint when no browser could be found and
// downloads are disabled.
func ForBrowserUnavailable(allowDownload bool) string {
	if allowDownload {
		return format("check network access to download Chromium, or install Chrome/Edge")
	}
	return format("install Chrome/Edge or set browser.allowDownload: true")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in the user config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/go-docconv/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForCancelled explains what a stopped job leaves behind.
func ForCancelled() string {
	return format("completed outputs were kept; the interrupted item was removed")
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
