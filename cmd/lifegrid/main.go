package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lifegrid/internal/app"
	"lifegrid/internal/platform/otel"
	"lifegrid/internal/presets"
	"lifegrid/internal/server"
	"lifegrid/pkg/grid"
)

func main() {
	// Minimal logger until the configured one is built.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logW io.Writer, args []string) error {
	cfg, err := app.NewConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("lifegrid", flag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := cfg.NewLogger(logW)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger)

	var files []*presets.File
	if cfg.RulesFile != "" {
		f, err := presets.Load(cfg.RulesFile)
		if err != nil {
			return err
		}
		f.Register()
		files = append(files, f)
		logger.Info("presets loaded", "path", cfg.RulesFile, "rules", len(f.Rules), "densities", len(f.Densities))
	}
	if _, ok := grid.LookupRule(cfg.Rule); !ok {
		return fmt.Errorf("config: unknown rule %q", cfg.Rule)
	}
	density, err := presets.Density(cfg.Density, files...)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	shutdownTracing, err := otel.Setup(ctx, "lifegrid")
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	srv, err := server.NewServer(cfg.HTTPAddr, server.Options{
		GridPath:     cfg.GridPath,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Density:      density,
		Count:        cfg.Count,
		Seed:         cfg.Seed,
		Neighborhood: cfg.Neighborhood,
		RuleName:     cfg.Rule,
		MaxGrids:     cfg.MaxGrids,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Workers:      cfg.Workers,
		CORSOrigins:  cfg.CORSOrigins,
		Presets:      files,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	logger.Info("grid service configured",
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"density", density,
		"neighborhood", cfg.Neighborhood.String(),
		"rule", cfg.Rule,
	)
	return srv.ListenAndServe(ctx)
}
