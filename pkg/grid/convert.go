package grid

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// FromInts builds a grid from a nested [x][y] integer slice.
func FromInts(values [][]int) (*Grid, error) {
	return FromValues(values)
}

// FromValues builds a grid from any two-dimensional sequence of
// integer-convertible entries: typed slices such as [][]int or [][]float64,
// or JSON-decoded []any rows holding float64, json.Number, strings or bools.
// Width and height are inferred from the shape. Entries must coerce to 0 or
// 1. An empty outer sequence yields a 0x0 grid.
func FromValues(values any) (*Grid, error) {
	outer, ok := sequence(reflect.ValueOf(values))
	if !ok {
		return nil, fmt.Errorf("%w: expected a 2D sequence, got %T", ErrShape, values)
	}
	w := outer.Len()
	if w == 0 {
		return newGrid(0, 0), nil
	}

	rows := make([]reflect.Value, w)
	h := -1
	for x := 0; x < w; x++ {
		row, ok := sequence(outer.Index(x))
		if !ok {
			return nil, fmt.Errorf("%w: row %d is not a sequence", ErrShape, x)
		}
		if h < 0 {
			h = row.Len()
		} else if row.Len() != h {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrShape, x, row.Len(), h)
		}
		rows[x] = row
	}

	g := newGrid(w, h)
	for x, row := range rows {
		for y := 0; y < h; y++ {
			entry := indirect(row.Index(y))
			if _, nested := sequence(entry); nested {
				return nil, fmt.Errorf("%w: entry (%d,%d) is a sequence, want a scalar", ErrShape, x, y)
			}
			v, err := coerce(entry)
			if err != nil {
				return nil, fmt.Errorf("%w at (%d,%d)", err, x, y)
			}
			g.cells[g.index(x, y)] = v
		}
	}
	return g, nil
}

// sequence unwraps interfaces and pointers and reports whether v is a slice
// or array. Strings are scalars.
func sequence(v reflect.Value) (reflect.Value, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return v, false
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v, true
	default:
		return v, false
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// coerce converts a scalar entry to a cell value.
func coerce(v reflect.Value) (uint8, error) {
	if !v.IsValid() {
		return 0, fmt.Errorf("%w: null entry", ErrValue)
	}
	var n int64
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			n = 1
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > 1 {
			return 0, fmt.Errorf("%w: %d is not 0 or 1", ErrValue, u)
		}
		n = int64(u)
	case reflect.Float32, reflect.Float64:
		f, err := integral(v.Float())
		if err != nil {
			return 0, err
		}
		n = f
	case reflect.String:
		s := strings.TrimSpace(v.String())
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = parsed
			break
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrValue, v.String())
		}
		if n, err = integral(f); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: unsupported entry type %s", ErrValue, v.Type())
	}
	if n != 0 && n != 1 {
		return 0, fmt.Errorf("%w: %d is not 0 or 1", ErrValue, n)
	}
	return uint8(n), nil
}

func integral(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrValue, f)
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v overflows", ErrValue, f)
	}
	return int64(f), nil
}
