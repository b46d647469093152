package yamlutil_test

// Notes:
// - Marshal error branch: not tested because yaml.Marshal only fails with
//   unmarshalable types (channels, functions), which config never holds.

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-docconv/internal/yamlutil"
)

type testConfig struct {
	Name    string        `yaml:"name"`
	Count   int           `yaml:"count"`
	Timeout time.Duration `yaml:"timeout"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Strict decoding and input guards
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		wantAny bool
	}{
		{name: "valid", data: []byte("name: a\ncount: 3\ntimeout: 90s\n"), dest: &testConfig{}},
		{name: "unknown field", data: []byte("name: a\nextra: 1\n"), dest: &testConfig{}, wantAny: true},
		{name: "type mismatch", data: []byte("count: many\n"), dest: &testConfig{}, wantAny: true},
		{name: "nil data", data: nil, dest: &testConfig{}, wantErr: yamlutil.ErrNilData},
		{name: "empty data", data: []byte{}, dest: &testConfig{}, wantErr: yamlutil.ErrNilData},
		{name: "nil destination", data: []byte("name: a"), dest: nil, wantErr: yamlutil.ErrNilDestination},
		{name: "too large", data: []byte(strings.Repeat("#", yamlutil.MaxInputSize+1)), dest: &testConfig{}, wantErr: yamlutil.ErrInputTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantAny:
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.HasPrefix(err.Error(), "yamlutil:") {
					t.Errorf("error not prefixed: %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				got := tt.dest.(*testConfig)
				if got.Name != "a" || got.Count != 3 || got.Timeout != 90*time.Second {
					t.Errorf("decoded %+v", got)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMarshal - Encoding with an optional comment header
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	v := testConfig{Name: "deck", Count: 2}

	plain, err := yamlutil.Marshal(v, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(plain), "name: deck\n") {
		t.Errorf("plain output:\n%s", plain)
	}

	withHeader, err := yamlutil.Marshal(v, "effective config\n\nsource: env\n")
	if err != nil {
		t.Fatal(err)
	}
	want := "# effective config\n#\n# source: env\nname: deck\n"
	if !strings.HasPrefix(string(withHeader), want) {
		t.Errorf("output:\n%s\nwant prefix:\n%s", withHeader, want)
	}

	var back testConfig
	if err := yamlutil.UnmarshalStrict(withHeader, &back); err != nil {
		t.Fatalf("output does not decode strictly: %v", err)
	}
	if back.Name != "deck" || back.Count != 2 {
		t.Errorf("decoded %+v", back)
	}
}
