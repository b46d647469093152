package docconv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake command runner
// ---------------------------------------------------------------------------

// fakeRunner records invocations and delegates to fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(name string, args []string) (commandResult, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (commandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.fn == nil {
		return commandResult{}, nil
	}
	return f.fn(name, args)
}

var _ commandRunner = (*fakeRunner)(nil)

// flagValue returns the argument following flag.
func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func fakeSoffice(t *testing.T, fn func(name string, args []string) (commandResult, error)) *sofficeBackend {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "soffice")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return &sofficeBackend{
		bin:    bin,
		runner: &fakeRunner{fn: fn},
		lookup: func() (string, bool) { return "", false },
	}
}

// ---------------------------------------------------------------------------
// TestSofficeBackend
// ---------------------------------------------------------------------------

func TestSofficeBackend_ConvertToPDF(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	b := fakeSoffice(t, func(_ string, args []string) (commandResult, error) {
		gotArgs = args
		outdir := flagValue(args, "--outdir")
		stem := strings.TrimSuffix(filepath.Base(args[len(args)-1]), ".docx")
		return commandResult{}, os.WriteFile(filepath.Join(outdir, stem+".pdf"), []byte("%PDF-1.7"), 0o600)
	})

	dir := t.TempDir()
	in := filepath.Join(dir, "report.docx")
	out := filepath.Join(dir, "out", "final.pdf")
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := b.ConvertToPDF(context.Background(), in, out); err != nil {
		t.Fatalf("ConvertToPDF() error = %v", err)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) != "%PDF-1.7" { // #nosec G304 -- test path
		t.Errorf("output = %q, %v", data, err)
	}
	for _, want := range []string{"--headless", "--convert-to", "pdf"} {
		found := false
		for _, a := range gotArgs {
			if a == want {
				found = true
			}
		}
		if !found {
			t.Errorf("args %v missing %q", gotArgs, want)
		}
	}
	if !strings.HasPrefix(gotArgs[0], "-env:UserInstallation=file:///") {
		t.Errorf("first arg = %q, want private profile", gotArgs[0])
	}
}

func TestSofficeBackend_ConvertToPDF_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string, []string) (commandResult, error)
	}{
		{
			name: "command fails",
			fn: func(string, []string) (commandResult, error) {
				return commandResult{ExitCode: 1}, ErrExternalOperation
			},
		},
		{
			name: "timeout",
			fn: func(string, []string) (commandResult, error) {
				return commandResult{ExitCode: -1}, errors.Join(ErrExternalOperation, ErrTimeout)
			},
		},
		{
			name: "no output produced",
			fn: func(string, []string) (commandResult, error) {
				return commandResult{}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := fakeSoffice(t, tt.fn)
			out := filepath.Join(t.TempDir(), "x.pdf")
			err := b.ConvertToPDF(context.Background(), "x.docx", out)
			if !errors.Is(err, errFallThrough) {
				t.Errorf("error = %v, want fall-through", err)
			}
			if !errors.Is(err, ErrExternalOperation) {
				t.Errorf("error = %v, want ErrExternalOperation", err)
			}
			if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
				t.Error("output exists after failure")
			}
		})
	}
}

func TestSofficeBackend_Probe(t *testing.T) {
	t.Parallel()

	missing := &sofficeBackend{
		bin:    filepath.Join(t.TempDir(), "nope"),
		lookup: func() (string, bool) { return "/usr/bin/soffice", true },
	}
	if err := missing.Probe(context.Background()); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("explicit missing bin: error = %v, want ErrToolUnavailable", err)
	}

	found := &sofficeBackend{lookup: func() (string, bool) { return "/usr/bin/soffice", true }}
	if err := found.Probe(context.Background()); err != nil {
		t.Errorf("lookup hit: error = %v", err)
	}

	none := &sofficeBackend{lookup: func() (string, bool) { return "", false }}
	if err := none.Probe(context.Background()); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("lookup miss: error = %v, want ErrToolUnavailable", err)
	}
}

// ---------------------------------------------------------------------------
// TestComBackend
// ---------------------------------------------------------------------------

func TestComBackend_UnavailableOffWindows(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("automation servers may be installed")
	}

	documents, sheets := officeCandidates(OfficeOptions{})
	for _, b := range append(documents, sheets...) {
		cb, ok := b.(*comBackend)
		if !ok {
			continue
		}
		if err := cb.Probe(context.Background()); !errors.Is(err, ErrToolUnavailable) {
			t.Errorf("%s Probe() = %v, want ErrToolUnavailable", cb.Name(), err)
		}
		err := cb.ConvertToPDF(context.Background(), "in.docx", "out.pdf")
		if !errors.Is(err, errFallThrough) {
			t.Errorf("%s ConvertToPDF() = %v, want fall-through", cb.Name(), err)
		}
	}
}

func TestOfficeCandidates_Order(t *testing.T) {
	t.Parallel()

	documents, sheets := officeCandidates(OfficeOptions{})
	names := func(bs []Backend) string {
		var out []string
		for _, b := range bs {
			out = append(out, b.Name())
		}
		return strings.Join(out, ",")
	}

	if got := names(documents); got != "ms-word,wps-writer,libreoffice" {
		t.Errorf("documents = %s", got)
	}
	if got := names(sheets); got != "ms-excel,wps-spreadsheets,libreoffice" {
		t.Errorf("sheets = %s", got)
	}
}

func TestOfficeOptions_Timeout(t *testing.T) {
	t.Parallel()

	if got := (OfficeOptions{}).timeout(); got != DefaultOfficeTimeout {
		t.Errorf("zero timeout = %v, want %v", got, DefaultOfficeTimeout)
	}
}
