package presets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lifegrid/pkg/grid"
)

const sample = `
rules:
  - name: crowded
    description: survive with three or four neighbors
    table: [0, 0, 0, 1, 1]
densities:
  dense: 0.2
`

func TestLoadAndRegister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f.Register()

	r, ok := grid.LookupRule("crowded")
	if !ok {
		t.Fatal("crowded rule not registered")
	}
	for n, want := range []uint8{0, 0, 0, 1, 1, 0, 0, 0, 0} {
		if got := r.Next(n); got != want {
			t.Fatalf("crowded(%d) = %d, want %d", n, got, want)
		}
	}

	d, err := Density("dense", f)
	if err != nil || d != 0.2 {
		t.Fatalf("density dense = %v (%v), want 0.2", d, err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing name": "rules:\n  - table: [0, 1]\n",
		"duplicate":    "rules:\n  - {name: a, table: [0]}\n  - {name: a, table: [1]}\n",
		"bad entry":    "rules:\n  - {name: a, table: [0, 2]}\n",
		"long table":   "rules:\n  - {name: a, table: [0,0,0,0,0,0,0,0,0,0]}\n",
		"bad density":  "densities:\n  x: 1.5\n",
		"not yaml":     "rules: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := Parse([]byte("rules:\n  - {name: a, table: [0, 2]}\n"))
	if !errors.Is(err, grid.ErrValue) {
		t.Fatalf("expected ErrValue, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read presets") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestDensity(t *testing.T) {
	cases := map[string]float64{
		"even":      0.5,
		"scattered": 0.8,
		"sparse":    0.95,
		"0.3":       0.3,
		" 1 ":       1,
	}
	for in, want := range cases {
		got, err := Density(in)
		if err != nil || got != want {
			t.Fatalf("density %q = %v (%v), want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"dense", "-0.1", "2"} {
		if _, err := Density(in); err == nil {
			t.Fatalf("density %q: expected error", in)
		}
	}
	override := &File{Densities: map[string]float64{"sparse": 0.99}}
	if d, _ := Density("sparse", nil, override); d != 0.99 {
		t.Fatalf("file preset should override built-in, got %v", d)
	}
	if diff := cmp.Diff([]string{"even", "scattered", "sparse"}, DensityNames()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}
