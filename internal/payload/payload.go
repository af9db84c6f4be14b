// Package payload normalizes request bodies carrying grids into an ordered
// list, and shapes the response body.
//
// Accepted bodies, in priority order:
//
//	{"grids": [<grid>, ...]}
//	{"grid": <grid>}
//	{"grid_0": <grid>, "grid_1": <grid>, ...}
//	[[...], ...]            (the body itself is one grid)
//
// An empty body, null, {} or [] asks for freshly generated grids.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"lifegrid/pkg/grid"
)

// ErrMalformed reports a body that is not valid JSON or not an object/array.
var ErrMalformed = errors.New("malformed payload")

// Kind records which body shape a request matched.
type Kind int

const (
	// KindGenerate means no grids were supplied.
	KindGenerate Kind = iota
	// KindList is the {"grids": [...]} form.
	KindList
	// KindSingle is the {"grid": ...} form.
	KindSingle
	// KindKeyed is the {"grid_N": ...} form.
	KindKeyed
	// KindFallback is a bare nested array.
	KindFallback
	// KindUnrecognized is an object matching none of the known forms. It
	// carries no grids.
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindGenerate:
		return "generate"
	case KindList:
		return "list"
	case KindSingle:
		return "single"
	case KindKeyed:
		return "keyed"
	case KindFallback:
		return "fallback"
	case KindUnrecognized:
		return "unrecognized"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

const (
	listKey   = "grids"
	singleKey = "grid"
	keyPrefix = "grid_"
)

// Entry is one raw grid and the key it came from.
type Entry struct {
	Key    string
	Values any
}

// Request is a normalized body.
type Request struct {
	Kind    Kind
	Entries []Entry
}

// Decode reads and normalizes a JSON body. Numbers are kept as json.Number.
func Decode(r io.Reader) (Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Request{}, fmt.Errorf("read payload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Request{Kind: KindGenerate}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Request{}, fmt.Errorf("%w: trailing data after JSON value", ErrMalformed)
	}
	return Normalize(body)
}

// Normalize resolves an already decoded body.
func Normalize(body any) (Request, error) {
	switch b := body.(type) {
	case nil:
		return Request{Kind: KindGenerate}, nil
	case []any:
		if len(b) == 0 {
			return Request{Kind: KindGenerate}, nil
		}
		return Request{Kind: KindFallback, Entries: []Entry{{Values: b}}}, nil
	case map[string]any:
		return normalizeObject(b), nil
	default:
		return Request{}, fmt.Errorf("%w: expected an object or array, got %T", ErrMalformed, body)
	}
}

func normalizeObject(body map[string]any) Request {
	if len(body) == 0 {
		return Request{Kind: KindGenerate}
	}
	if list, ok := body[listKey].([]any); ok {
		entries := make([]Entry, len(list))
		for i, values := range list {
			entries[i] = Entry{Key: fmt.Sprintf("%s[%d]", listKey, i), Values: values}
		}
		return Request{Kind: KindList, Entries: entries}
	}
	if values, ok := body[singleKey]; ok {
		return Request{Kind: KindSingle, Entries: []Entry{{Key: singleKey, Values: values}}}
	}
	var keyed []string
	for k := range body {
		if strings.HasPrefix(k, keyPrefix) {
			keyed = append(keyed, k)
		}
	}
	if len(keyed) == 0 {
		return Request{Kind: KindUnrecognized}
	}
	ordered := OrderKeys(keyed)
	entries := make([]Entry, len(ordered))
	for i, k := range ordered {
		entries[i] = Entry{Key: k, Values: body[k]}
	}
	return Request{Kind: KindKeyed, Entries: entries}
}

// OrderKeys sorts grid_N keys by their integer suffix. If any suffix is not
// an integer the full keys are sorted lexically instead.
func OrderKeys(keys []string) []string {
	ordered := append([]string(nil), keys...)
	suffix := make(map[string]int, len(ordered))
	for _, k := range ordered {
		n, err := strconv.Atoi(strings.TrimPrefix(k, keyPrefix))
		if err != nil {
			sort.Strings(ordered)
			return ordered
		}
		suffix[k] = n
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if suffix[a] != suffix[b] {
			return suffix[a] < suffix[b]
		}
		return a < b
	})
	return ordered
}

// GridError describes one entry that could not be turned into a grid.
type GridError struct {
	Index int
	Key   string
	Err   error
}

func (e *GridError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("grid %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("grid %d (%s): %v", e.Index, e.Key, e.Err)
}

func (e *GridError) Unwrap() error { return e.Err }

// Grids builds every entry independently. The returned slice has one slot
// per entry; slots for failed entries are nil and described in errs.
func (r Request) Grids() (grids []*grid.Grid, errs []*GridError) {
	grids = make([]*grid.Grid, len(r.Entries))
	for i, e := range r.Entries {
		g, err := grid.FromValues(e.Values)
		if err != nil {
			errs = append(errs, &GridError{Index: i, Key: e.Key, Err: err})
			continue
		}
		grids[i] = g
	}
	return grids, errs
}

// Response is the body returned to callers.
type Response struct {
	Grids [][][]int `json:"grids"`
}

// NewResponse serializes the grids in order.
func NewResponse(grids []*grid.Grid) Response {
	out := make([][][]int, len(grids))
	for i, g := range grids {
		out[i] = g.Serialize()
	}
	return Response{Grids: out}
}
