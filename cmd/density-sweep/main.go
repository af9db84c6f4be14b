package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"lifegrid/internal/presets"
	"lifegrid/pkg/core"
	"lifegrid/pkg/grid"
)

type scenario struct {
	density float64
	seed    int64
}

type scenarioResult struct {
	scenario
	initial float64
	next    float64
}

type densitySummary struct {
	density     float64
	runs        int
	meanInitial float64
	meanNext    float64
	minNext     float64
	maxNext     float64
}

type sweepConfig struct {
	width, height int
	neighborhood  grid.Neighborhood
	rule          grid.Rule
}

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("density-sweep", flag.ContinueOnError)
	width := fs.Int("w", 50, "grid width")
	height := fs.Int("h", 50, "grid height")
	densities := fs.String("densities", strings.Join(presets.DensityNames(), ","), "comma separated thresholds or preset names")
	seeds := fs.Int("seeds", 16, "seeds per density")
	neighborhood := grid.Moore
	fs.TextVar(&neighborhood, "neighborhood", grid.Moore, "moore or orthogonal")
	ruleName := fs.String("rule", grid.CanonicalName, "transition rule")
	rulesFile := fs.String("rules-file", "", "YAML presets file")
	workers := fs.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *width <= 0 || *height <= 0 || *seeds <= 0 || *workers <= 0 {
		return fmt.Errorf("w, h, seeds and workers must be positive")
	}

	var files []*presets.File
	if *rulesFile != "" {
		f, err := presets.Load(*rulesFile)
		if err != nil {
			return err
		}
		f.Register()
		files = append(files, f)
	}
	rule, ok := grid.LookupRule(*ruleName)
	if !ok {
		return fmt.Errorf("unknown rule %q", *ruleName)
	}

	var scenarios []scenario
	for _, name := range strings.Split(*densities, ",") {
		d, err := presets.Density(name, files...)
		if err != nil {
			return err
		}
		for s := 1; s <= *seeds; s++ {
			scenarios = append(scenarios, scenario{density: d, seed: int64(s)})
		}
	}

	cfg := sweepConfig{width: *width, height: *height, neighborhood: neighborhood, rule: rule}
	fmt.Fprintf(out, "Sweeping %d scenarios (%d workers, %dx%d, %s, rule %s)\n",
		len(scenarios), *workers, cfg.width, cfg.height, cfg.neighborhood, *ruleName)

	start := time.Now()
	results, err := sweep(cfg, scenarios, *workers)
	if err != nil {
		return err
	}
	summaries := summarize(results)

	fmt.Fprintf(out, "\n%-10s %5s %12s %12s %12s %12s\n", "density", "runs", "initial", "next", "next min", "next max")
	for _, s := range summaries {
		fmt.Fprintf(out, "%-10.3f %5d %12.4f %12.4f %12.4f %12.4f\n",
			s.density, s.runs, s.meanInitial, s.meanNext, s.minNext, s.maxNext)
	}
	fmt.Fprintf(out, "\nelapsed %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// sweep runs every scenario on a pool of workers.
func sweep(cfg sweepConfig, scenarios []scenario, workers int) ([]scenarioResult, error) {
	jobs := make(chan scenario)
	results := make(chan scenarioResult)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sc := range jobs {
				res, err := runScenario(cfg, sc)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for _, sc := range scenarios {
			jobs <- sc
		}
		close(jobs)
	}()

	var all []scenarioResult
	for res := range results {
		all = append(all, res)
	}
	select {
	case err := <-errs:
		return nil, err
	default:
	}
	return all, nil
}

// runScenario seeds one grid and measures live-cell fractions before and
// after a single step.
func runScenario(cfg sweepConfig, sc scenario) (scenarioResult, error) {
	g, err := grid.New(cfg.width, cfg.height)
	if err != nil {
		return scenarioResult{}, err
	}
	g.Randomize(sc.density, core.NewRNG(sc.seed))
	next, err := g.Step(cfg.neighborhood, cfg.rule)
	if err != nil {
		return scenarioResult{}, err
	}
	cells := float64(cfg.width * cfg.height)
	return scenarioResult{
		scenario: sc,
		initial:  float64(g.Population()) / cells,
		next:     float64(next.Population()) / cells,
	}, nil
}

func summarize(results []scenarioResult) []densitySummary {
	byDensity := map[float64]*densitySummary{}
	for _, r := range results {
		s, ok := byDensity[r.density]
		if !ok {
			s = &densitySummary{density: r.density, minNext: r.next, maxNext: r.next}
			byDensity[r.density] = s
		}
		s.runs++
		s.meanInitial += r.initial
		s.meanNext += r.next
		s.minNext = min(s.minNext, r.next)
		s.maxNext = max(s.maxNext, r.next)
	}
	out := make([]densitySummary, 0, len(byDensity))
	for _, s := range byDensity {
		s.meanInitial /= float64(s.runs)
		s.meanNext /= float64(s.runs)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].density < out[j].density })
	return out
}
