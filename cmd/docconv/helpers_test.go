package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	docconv "github.com/alnah/go-docconv"
)

// fakeBackend is a probe-only backend for capability tests.
type fakeBackend struct {
	name     string
	probeErr error
}

func (f fakeBackend) Name() string                { return f.name }
func (f fakeBackend) Probe(context.Context) error { return f.probeErr }

// testEnv returns an environment with captured output, no process env and
// an empty backend registry so nothing on the host is probed.
func testEnv(registry docconv.Registry) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	if registry == nil {
		registry = docconv.Registry{}
	}
	env := &Environment{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Getenv:  func(string) string { return "" },
		Environ: func() []string { return nil },
		Options: []docconv.Option{docconv.WithRegistry(registry)},
	}
	return env, &stdout, &stderr
}

// writePNG writes a w x h solid PNG and returns its path.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
