package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"lifegrid/internal/ctxlog"
	"lifegrid/internal/payload"
	"lifegrid/pkg/core"
	"lifegrid/pkg/grid"
)

const tracerName = "lifegrid/internal/server"

// HealthPath answers liveness probes.
const HealthPath = "/healthz"

type handler struct {
	opts Options
}

// NewHandler builds the HTTP surface of the grid service:
//
//	POST <GridPath>   step supplied grids once, or generate fresh ones
//	GET  /healthz     liveness
//
// Responses carry {"grids": [...]}; CORS is applied for the configured
// origins.
func NewHandler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.GridPath == "" {
		opts.GridPath = "/grid"
	}
	h := &handler{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+opts.GridPath, h.serveGrids)
	mux.HandleFunc("GET "+HealthPath, h.serveHealth)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
	return chain(c.Handler(mux), requestLogger(opts.Logger), recoverPanic())
}

func (h *handler) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// errorBody is the JSON body of every non-2xx grid response.
type errorBody struct {
	Error string        `json:"error"`
	Grids []gridProblem `json:"grids,omitempty"`
}

type gridProblem struct {
	Index int    `json:"index"`
	Key   string `json:"key,omitempty"`
	Error string `json:"error"`
}

func (h *handler) serveGrids(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "grid.request")
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	p, err := h.opts.paramsFromQuery(r.URL.Query())
	if err != nil {
		h.fail(ctx, w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	span.SetAttributes(
		attribute.String("grid.neighborhood", p.neighborhood.String()),
		attribute.String("grid.rule", p.ruleName),
	)

	req, err := payload.Decode(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.fail(ctx, w, status, errorBody{Error: err.Error()})
		return
	}
	span.SetAttributes(attribute.String("payload.kind", req.Kind.String()))

	var out []*grid.Grid
	if req.Kind == payload.KindGenerate {
		out, err = h.generate(ctx, p)
	} else {
		if len(req.Entries) > h.opts.MaxGrids {
			h.fail(ctx, w, http.StatusRequestEntityTooLarge, errorBody{
				Error: fmt.Sprintf("%d grids exceed the limit of %d", len(req.Entries), h.opts.MaxGrids),
			})
			return
		}
		grids, gridErrs := req.Grids()
		if len(gridErrs) > 0 {
			body := errorBody{Error: fmt.Sprintf("%d of %d grids are invalid", len(gridErrs), len(grids))}
			for _, ge := range gridErrs {
				body.Grids = append(body.Grids, gridProblem{Index: ge.Index, Key: ge.Key, Error: ge.Err.Error()})
			}
			h.fail(ctx, w, http.StatusBadRequest, body)
			return
		}
		out, err = h.step(ctx, grids, p)
	}
	if err != nil {
		span.RecordError(err)
		h.fail(ctx, w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	logger.Debug("grids processed", "kind", req.Kind.String(), "count", len(out))
	writeJSON(ctx, w, http.StatusOK, payload.NewResponse(out))
}

// generate builds p.count randomized grids. Grid i is seeded with seed+i so a
// fixed seed reproduces the whole response.
func (h *handler) generate(ctx context.Context, p params) ([]*grid.Grid, error) {
	seed := p.seed
	if seed == 0 {
		var err error
		if seed, err = core.NewSeed(); err != nil {
			return nil, err
		}
	}
	out := make([]*grid.Grid, p.count)
	err := h.each(ctx, p.count, "grid.generate", func(i int) error {
		g, err := grid.New(h.opts.Width, h.opts.Height)
		if err != nil {
			return err
		}
		g.Randomize(p.density, core.NewRNG(seed+int64(i)))
		out[i] = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// step advances every grid one generation.
func (h *handler) step(ctx context.Context, grids []*grid.Grid, p params) ([]*grid.Grid, error) {
	out := make([]*grid.Grid, len(grids))
	err := h.each(ctx, len(grids), "grid.step", func(i int) error {
		next, err := grids[i].Step(p.neighborhood, p.rule)
		if err != nil {
			return fmt.Errorf("grid %d: %w", i, err)
		}
		out[i] = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// each runs fn for indexes [0,n) on at most Workers goroutines, one span per
// index. Each fn writes only its own slot.
func (h *handler) each(ctx context.Context, n int, spanName string, fn func(i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Workers)
	tracer := otel.Tracer(tracerName)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, span := tracer.Start(ctx, spanName)
			defer span.End()
			span.SetAttributes(attribute.Int("grid.index", i))
			if err := fn(i); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (h *handler) fail(ctx context.Context, w http.ResponseWriter, status int, body errorBody) {
	ctxlog.FromContext(ctx).Warn("grid request rejected", "status", status, "error", body.Error, "invalid_grids", len(body.Grids))
	writeJSON(ctx, w, status, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.FromContext(ctx).Error("write response", "error", err)
	}
}
