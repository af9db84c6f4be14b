package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"

	"lifegrid/pkg/grid"
)

// EnvPrefix prefixes every environment variable read by the service.
const EnvPrefix = "LIFEGRID_"

// Config represents the runtime parameters of the grid service.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`
	GridPath string `env:"GRID_PATH" envDefault:"/grid"`

	Width   int    `env:"WIDTH" envDefault:"50"`
	Height  int    `env:"HEIGHT" envDefault:"50"`
	Density string `env:"DENSITY" envDefault:"0.5"`
	Count   int    `env:"COUNT" envDefault:"1"`
	Seed    int64  `env:"SEED" envDefault:"0"`

	Neighborhood grid.Neighborhood `env:"NEIGHBORHOOD" envDefault:"moore"`
	Rule         string            `env:"RULE" envDefault:"canonical"`
	RulesFile    string            `env:"RULES_FILE"`

	MaxGrids     int   `env:"MAX_GRIDS" envDefault:"64"`
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	Workers      int   `env:"WORKERS"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// NewConfig returns a Config populated from LIFEGRID_* environment variables,
// falling back to defaults for anything unset.
func NewConfig() (*Config, error) {
	c := &Config{}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Bind attaches the configuration to the provided FlagSet. Flags override
// values read from the environment.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.GridPath, "path", c.GridPath, "path serving grid requests")
	fs.IntVar(&c.Width, "w", c.Width, "width of generated grids")
	fs.IntVar(&c.Height, "h", c.Height, "height of generated grids")
	fs.StringVar(&c.Density, "density", c.Density, "density threshold or preset name for generated grids")
	fs.IntVar(&c.Count, "n", c.Count, "grids generated when no body is sent")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for generated grids (0 draws a fresh seed per request)")
	fs.TextVar(&c.Neighborhood, "neighborhood", c.Neighborhood, "neighborhood: moore or orthogonal")
	fs.StringVar(&c.Rule, "rule", c.Rule, "transition rule name")
	fs.StringVar(&c.RulesFile, "rules-file", c.RulesFile, "YAML file with extra rule and density presets")
	fs.IntVar(&c.MaxGrids, "max-grids", c.MaxGrids, "maximum grids per request")
	fs.Int64Var(&c.MaxBodyBytes, "max-body", c.MaxBodyBytes, "maximum request body size in bytes")
	fs.IntVar(&c.Workers, "workers", c.Workers, "grids processed concurrently per request (0 uses GOMAXPROCS)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}

// Validate reports the first invalid setting. Workers is normalized to
// GOMAXPROCS when unset.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http address is required")
	}
	if !strings.HasPrefix(c.GridPath, "/") {
		return fmt.Errorf("grid path %q must start with /", c.GridPath)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid size %dx%d must be positive", c.Width, c.Height)
	}
	if c.MaxGrids <= 0 {
		return fmt.Errorf("max grids %d must be positive", c.MaxGrids)
	}
	if c.Count < 0 || c.Count > c.MaxGrids {
		return fmt.Errorf("count %d must be within [0,%d]", c.Count, c.MaxGrids)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes %d must be positive", c.MaxBodyBytes)
	}
	if !c.Neighborhood.Valid() {
		return fmt.Errorf("unknown neighborhood %s", c.Neighborhood)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
}
