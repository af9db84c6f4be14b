// Package grid implements a binary cellular automaton grid: storage,
// randomized seeding, neighbor counting, a single double-buffered generation
// step and conversion to and from nested integer arrays indexed [x][y].
package grid

import (
	"fmt"
	"strings"
)

// Grid stores width*height binary cells. Cells are laid out column-major in
// a single slice so that (x, y) lives at x*height + y, matching the [x][y]
// order of the serialized form.
type Grid struct {
	w, h  int
	cells []uint8
}

// New allocates a zero-filled grid with the given dimensions.
func New(width, height int) (*Grid, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must not be negative", ErrShape, width, height)
	}
	return newGrid(width, height), nil
}

func newGrid(w, h int) *Grid {
	return &Grid{w: w, h: h, cells: make([]uint8, w*h)}
}

// Width returns the size of the outer (x) dimension.
func (g *Grid) Width() int { return g.w }

// Height returns the size of the inner (y) dimension.
func (g *Grid) Height() int { return g.h }

func (g *Grid) index(x, y int) int { return x*g.h + y }

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.w && y >= 0 && y < g.h
}

// Cell returns the value at (x, y).
func (g *Grid) Cell(x, y int) (uint8, error) {
	if !g.inBounds(x, y) {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrIndex, x, y, g.w, g.h)
	}
	return g.cells[g.index(x, y)], nil
}

// Set assigns v to (x, y). Only 0 and 1 are accepted.
func (g *Grid) Set(x, y int, v uint8) error {
	if !g.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrIndex, x, y, g.w, g.h)
	}
	if v > 1 {
		return fmt.Errorf("%w: %d at (%d,%d)", ErrValue, v, x, y)
	}
	g.cells[g.index(x, y)] = v
	return nil
}

// Population returns the number of live cells.
func (g *Grid) Population() int {
	n := 0
	for _, c := range g.cells {
		n += int(c)
	}
	return n
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	c := newGrid(g.w, g.h)
	copy(c.cells, g.cells)
	return c
}

// Equal reports whether both grids have the same shape and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.w != o.w || g.h != o.h {
		return false
	}
	for i, c := range g.cells {
		if o.cells[i] != c {
			return false
		}
	}
	return true
}

// Serialize returns the cells as a width-long slice of height-long slices.
func (g *Grid) Serialize() [][]int {
	out := make([][]int, g.w)
	for x := 0; x < g.w; x++ {
		col := make([]int, g.h)
		base := x * g.h
		for y := 0; y < g.h; y++ {
			col[y] = int(g.cells[base+y])
		}
		out[x] = col
	}
	return out
}

// String renders one text line per x index, '#' for live cells and '.' for
// dead ones.
func (g *Grid) String() string {
	var b strings.Builder
	for x := 0; x < g.w; x++ {
		if x > 0 {
			b.WriteByte('\n')
		}
		for y := 0; y < g.h; y++ {
			if g.cells[g.index(x, y)] != 0 {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}
