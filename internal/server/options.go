package server

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"lifegrid/internal/presets"
	"lifegrid/pkg/grid"
)

// Options configures the grid handler.
type Options struct {
	GridPath string

	// Defaults for generated grids.
	Width   int
	Height  int
	Density float64
	Count   int

	// Seed of 0 draws a fresh seed per request.
	Seed int64

	Neighborhood grid.Neighborhood
	RuleName     string

	MaxGrids     int
	MaxBodyBytes int64
	Workers      int

	CORSOrigins []string
	// Presets resolves density names given as query overrides.
	Presets []*presets.File

	Logger *slog.Logger
}

// params are the per-request settings after query overrides.
type params struct {
	count        int
	density      float64
	seed         int64
	neighborhood grid.Neighborhood
	ruleName     string
	rule         grid.Rule
}

// paramsFromQuery starts from the handler defaults and applies the
// recognized query keys: n, density, seed, neighborhood and rule.
func (o Options) paramsFromQuery(q url.Values) (params, error) {
	p := params{
		count:        o.Count,
		density:      o.Density,
		seed:         o.Seed,
		neighborhood: o.Neighborhood,
		ruleName:     o.RuleName,
	}
	if v := strings.TrimSpace(q.Get("n")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 || parsed > o.MaxGrids {
			return p, fmt.Errorf("n must be an integer within [0,%d]", o.MaxGrids)
		}
		p.count = parsed
	}
	if v := strings.TrimSpace(q.Get("density")); v != "" {
		d, err := presets.Density(v, o.Presets...)
		if err != nil {
			return p, err
		}
		p.density = d
	}
	if v := strings.TrimSpace(q.Get("seed")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("seed %q is not an integer", v)
		}
		p.seed = parsed
	}
	if v := strings.TrimSpace(q.Get("neighborhood")); v != "" {
		n, err := grid.ParseNeighborhood(v)
		if err != nil {
			return p, err
		}
		p.neighborhood = n
	}
	if v := strings.TrimSpace(q.Get("rule")); v != "" {
		p.ruleName = v
	}
	rule, ok := grid.LookupRule(p.ruleName)
	if !ok {
		return p, fmt.Errorf("unknown rule %q (known: %s)", p.ruleName, strings.Join(grid.Rules(), ", "))
	}
	p.rule = rule
	return p, nil
}
