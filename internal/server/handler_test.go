package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lifegrid/pkg/core"
	"lifegrid/pkg/grid"
)

func testOptions() Options {
	return Options{
		GridPath:     "/grid",
		Width:        4,
		Height:       3,
		Density:      0.5,
		Count:        1,
		Seed:         42,
		Neighborhood: grid.Orthogonal,
		RuleName:     grid.CanonicalName,
		MaxGrids:     8,
		MaxBodyBytes: 1024,
		Workers:      2,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newTestHandler(t *testing.T, mutate func(*Options)) http.Handler {
	t.Helper()
	opts := testOptions()
	if mutate != nil {
		mutate(&opts)
	}
	return NewHandler(opts)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type gridsBody struct {
	Grids [][][]int `json:"grids"`
}

func decodeGrids(t *testing.T, rr *httptest.ResponseRecorder) [][][]int {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var body gridsBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Grids
}

func TestGenerateWithoutBody(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	first := decodeGrids(t, do(t, h, http.MethodPost, "/grid", ""))
	if len(first) != 1 || len(first[0]) != 4 || len(first[0][0]) != 3 {
		t.Fatalf("unexpected generated shape: %v", first)
	}
	second := decodeGrids(t, do(t, h, http.MethodPost, "/grid", "{}"))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("fixed seed not reproducible (-first +second):\n%s", diff)
	}
}

func TestGenerateQueryOverrides(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	got := decodeGrids(t, do(t, h, http.MethodPost, "/grid?n=3&seed=7&density=scattered", ""))
	if len(got) != 3 {
		t.Fatalf("expected 3 grids, got %d", len(got))
	}
	for i, values := range got {
		want, _ := grid.New(4, 3)
		want.Randomize(0.8, core.NewRNG(7+int64(i)))
		if diff := cmp.Diff(want.Serialize(), values); diff != "" {
			t.Fatalf("grid %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	empty := decodeGrids(t, do(t, h, http.MethodPost, "/grid?density=1", ""))
	for x, col := range empty[0] {
		for y, v := range col {
			if v != 0 {
				t.Fatalf("density 1 left cell (%d,%d) alive", x, y)
			}
		}
	}
}

func TestGenerateFreshSeed(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(o *Options) {
		o.Seed = 0
		o.Width, o.Height = 32, 32
	})
	a := decodeGrids(t, do(t, h, http.MethodPost, "/grid", ""))
	b := decodeGrids(t, do(t, h, http.MethodPost, "/grid", ""))
	if cmp.Equal(a, b) {
		t.Fatal("unseeded requests produced identical grids")
	}
}

func TestStepShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target string
		body   string
		want   [][][]int
	}{
		{
			name:   "single worked example",
			target: "/grid",
			body:   `{"grid": [[1,0],[0,1]]}`,
			want:   [][][]int{{{0, 1}, {1, 0}}},
		},
		{
			name:   "list",
			target: "/grid",
			body:   `{"grids": [[[1,0],[0,1]], [[1,1,1]]]}`,
			want:   [][][]int{{{0, 1}, {1, 0}}, {{0, 1, 0}}},
		},
		{
			name:   "keyed ordering",
			target: "/grid",
			body:   `{"grid_10": [[1]], "grid_2": [[0,0]], "grid_1": [[1,1,1]]}`,
			want:   [][][]int{{{0, 1, 0}}, {{0, 0}}, {{0}}},
		},
		{
			name:   "bare array",
			target: "/grid",
			body:   `[[0,0],[0,0]]`,
			want:   [][][]int{{{0, 0}, {0, 0}}},
		},
		{
			name:   "moore override",
			target: "/grid?neighborhood=moore",
			body:   `{"grid": [[1,1,1],[1,1,1],[1,1,1]]}`,
			want:   [][][]int{{{1, 0, 1}, {0, 0, 0}, {1, 0, 1}}},
		},
		{
			name:   "unrecognized object",
			target: "/grid",
			body:   `{"cells": [[1]]}`,
			want:   [][][]int{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(t, nil)
			got := decodeGrids(t, do(t, h, http.MethodPost, tc.target, tc.body))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("grids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvalidGridsListed(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	rr := do(t, h, http.MethodPost, "/grid", `{"grids": [[[1,0]], [[1,0],[1]], [[2]]]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Grids) != 2 {
		t.Fatalf("expected 2 problems, got %+v", body)
	}
	if body.Grids[0].Index != 1 || body.Grids[0].Key != "grids[1]" || !strings.Contains(body.Grids[0].Error, "shape") {
		t.Fatalf("unexpected first problem: %+v", body.Grids[0])
	}
	if body.Grids[1].Index != 2 || !strings.Contains(body.Grids[1].Error, "value") {
		t.Fatalf("unexpected second problem: %+v", body.Grids[1])
	}
}

func TestRejectedRequests(t *testing.T) {
	t.Parallel()

	manyGrids := `{"grids": [` + strings.TrimSuffix(strings.Repeat(`[[0]],`, 9), ",") + `]}`
	bigGrid := `{"grid": [[` + strings.TrimSuffix(strings.Repeat("0,", 1000), ",") + `]]}`
	cases := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "malformed json", method: http.MethodPost, target: "/grid", body: `{"grid": [`, status: http.StatusBadRequest},
		{name: "scalar body", method: http.MethodPost, target: "/grid", body: `5`, status: http.StatusBadRequest},
		{name: "body too large", method: http.MethodPost, target: "/grid", body: bigGrid, status: http.StatusRequestEntityTooLarge},
		{name: "too many grids", method: http.MethodPost, target: "/grid", body: manyGrids, status: http.StatusRequestEntityTooLarge},
		{name: "unknown rule", method: http.MethodPost, target: "/grid?rule=nope", status: http.StatusBadRequest},
		{name: "unknown neighborhood", method: http.MethodPost, target: "/grid?neighborhood=hex", status: http.StatusBadRequest},
		{name: "bad count", method: http.MethodPost, target: "/grid?n=99", status: http.StatusBadRequest},
		{name: "bad seed", method: http.MethodPost, target: "/grid?seed=x", status: http.StatusBadRequest},
		{name: "bad density", method: http.MethodPost, target: "/grid?density=dense", status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, target: "/grid", status: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodPost, target: "/other", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(t, nil)
			rr := do(t, h, tc.method, tc.target, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tc.status, rr.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rr := do(t, newTestHandler(t, nil), http.MethodGet, HealthPath, "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "OK" {
		t.Fatalf("health = %d %q", rr.Code, rr.Body.String())
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/grid", strings.NewReader(`{"grid": [[0]]}`))
	req.Header.Set("Origin", "http://client.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q, want *", got)
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/grid", nil)
	preflight.Header.Set("Origin", "http://client.test")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, preflight)
	if rr.Code >= 300 {
		t.Fatalf("preflight status = %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("preflight allow origin = %q, want *", got)
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(o *Options) { o.CORSOrigins = []string{"http://allowed.test"} })
	req := httptest.NewRequest(http.MethodPost, "/grid", nil)
	req.Header.Set("Origin", "http://other.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "req-1" {
		t.Fatalf("request id = %q, want req-1", got)
	}

	rr = do(t, h, http.MethodGet, HealthPath, "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), requestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), recoverPanic())
	rr := do(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
