// Package presets loads named transition rules and density presets from a
// YAML file and registers them with the grid engine.
//
// Example file:
//
//	rules:
//	  - name: crowded
//	    description: survive with three or four neighbors
//	    table: [0, 0, 0, 1, 1]
//	densities:
//	  dense: 0.2
package presets

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"lifegrid/pkg/grid"
)

// Built-in density thresholds. A cell starts alive when its draw exceeds the
// threshold, so higher values give sparser grids.
var builtinDensities = map[string]float64{
	"even":      0.5,
	"scattered": 0.8,
	"sparse":    0.95,
}

// RulePreset is a named count-indexed rule table.
type RulePreset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Table       []int  `yaml:"table"`
}

// File is the decoded preset document.
type File struct {
	Rules     []RulePreset       `yaml:"rules"`
	Densities map[string]float64 `yaml:"densities"`
}

// Load reads and validates a preset file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("presets %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a preset document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	seen := map[string]bool{}
	for i, r := range f.Rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("rule %q: defined twice", name)
		}
		seen[name] = true
		if _, err := r.table(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		f.Rules[i].Name = name
	}
	for name, d := range f.Densities {
		if d < 0 || d > 1 {
			return nil, fmt.Errorf("density %q: %v outside [0,1]", name, d)
		}
	}
	return &f, nil
}

func (r RulePreset) table() (grid.Table, error) {
	t := make(grid.Table, len(r.Table))
	for i, v := range r.Table {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: table entry %d is %d", grid.ErrValue, i, v)
		}
		t[i] = uint8(v)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Register adds every rule in the file to the grid rule registry.
func (f *File) Register() {
	for _, r := range f.Rules {
		t, err := r.table()
		if err != nil {
			continue
		}
		grid.RegisterRule(r.Name, t)
	}
}

// Density resolves a density threshold. s may be a preset name, either
// built-in or from files (later files win), or a number in [0,1].
func Density(s string, files ...*File) (float64, error) {
	s = strings.TrimSpace(s)
	for i := len(files) - 1; i >= 0; i-- {
		if files[i] == nil {
			continue
		}
		if d, ok := files[i].Densities[s]; ok {
			return d, nil
		}
	}
	if d, ok := builtinDensities[s]; ok {
		return d, nil
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown density %q", s)
	}
	if d < 0 || d > 1 {
		return 0, fmt.Errorf("density %v outside [0,1]", d)
	}
	return d, nil
}

// DensityNames lists the built-in density preset names.
func DensityNames() []string {
	names := make([]string, 0, len(builtinDensities))
	for name := range builtinDensities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
