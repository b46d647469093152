package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	flag "github.com/spf13/pflag"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string               `json:"status"` // "ready", "warnings", "errors"
	Backends []docconv.Capability `json:"backends"`
	Env      envInfo              `json:"environment"`
	System   systemInfo           `json:"system"`
	Warnings []string             `json:"warnings,omitempty"`
	Errors   []string             `json:"errors,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     bool   `json:"no_sandbox"`
	BrowserBin    string `json:"browser_bin,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// newDoctorFlagSet builds the flag set of the doctor command.
func newDoctorFlagSet(jsonOutput *bool, cfgName *string) *flag.FlagSet {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(jsonOutput, "json", false, "print the report as JSON")
	fs.StringVarP(cfgName, "config", "c", "", "config file name or path")
	return fs
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	var jsonOutput bool
	var cfgName string
	fs := newDoctorFlagSet(&jsonOutput, &cfgName)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(env.Stderr, "docconv doctor: %v\n", err)
		return ExitUsage
	}

	cfg, err := loadConfig(cfgName, env)
	if err != nil {
		return fail(env, err)
	}

	service := docconv.NewService(ctx, serviceOptions(cfg, env)...)
	result := runDoctor(service, cfg, env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(service *docconv.Service, cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status:   "ready",
		Backends: service.Selector().Capabilities(),
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  cfg.Browser.NoSandbox,
			BrowserBin: cfg.Browser.Bin,
		},
	}

	checkBackends(result, cfg)
	checkEnvironment(result, env)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkBackends warns for every domain without an available backend. The
// image commands need no backend, so a missing domain is not an error.
func checkBackends(result *doctorResult, cfg *config.Config) {
	for _, domain := range docconv.Domains {
		if domainAvailable(result.Backends, domain) {
			continue
		}
		hint := strings.TrimPrefix(unavailableHint(domain, cfg), "\n  hint: ")
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no %s backend available: %s", domain, hint))
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env)
	result.Env.CI = hints.InCI()

	if (result.Env.Container || result.Env.CI) && !result.Env.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the browser sandbox is on. Set ROD_NO_SANDBOX=1 or browser.noSandbox: true")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(env *Environment) (bool, string) {
	if env.getenv("DOCCONV_CONTAINER") == "1" {
		return true, "DOCCONV_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := env.getenv("container"); v != "" {
		return true, "container=" + v
	}
	if env.getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies that the temp directory used by every conversion is
// writable.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "docconv-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docconv doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Backends")
	for _, c := range r.Backends {
		if c.Available {
			fmt.Fprintf(w, "  [OK] %s: %s\n", c.Domain, c.Name)
		} else {
			fmt.Fprintf(w, "  [--] %s: %s (%s)\n", c.Domain, c.Name, c.Detail)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	if r.Env.NoSandbox {
		fmt.Fprintln(w, "  [OK] Browser sandbox: disabled")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: READY")
	case "warnings":
		fmt.Fprintln(w, "Status: READY (with warnings)")
	default:
		fmt.Fprintln(w, "Status: NOT READY")
	}
}
