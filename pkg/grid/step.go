package grid

import (
	"fmt"

	"lifegrid/pkg/core"
)

// Source draws uniform values in [0, 1). *rand.Rand and *core.RNG both
// satisfy it.
type Source interface {
	Float64() float64
}

// Randomize sets every cell to 1 when a draw from src exceeds threshold and
// to 0 otherwise, visiting cells x-major.
func (g *Grid) Randomize(threshold float64, src Source) {
	core.FillThreshold(src, g.cells, threshold)
}

// NeighborCount sums the cells around (x, y) under the given neighborhood.
// Neighbors outside the grid are skipped; the center is never counted.
func (g *Grid) NeighborCount(x, y int, n Neighborhood) (int, error) {
	if !n.Valid() {
		return 0, fmt.Errorf("%w: unknown neighborhood %d", ErrValue, uint8(n))
	}
	if !g.inBounds(x, y) {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrIndex, x, y, g.w, g.h)
	}
	return g.count(x, y, n.offsets()), nil
}

func (g *Grid) count(x, y int, offs []offset) int {
	sum := 0
	for _, o := range offs {
		nx, ny := x+o.dx, y+o.dy
		if !g.inBounds(nx, ny) {
			continue
		}
		sum += int(g.cells[g.index(nx, ny)])
	}
	return sum
}

// Step computes the next generation into a new grid. Every count is taken
// from the receiver, which is left untouched. A nil rule means Canonical, and
// any non-zero rule output becomes 1.
func (g *Grid) Step(n Neighborhood, rule Rule) (*Grid, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("%w: unknown neighborhood %d", ErrValue, uint8(n))
	}
	if rule == nil {
		rule = Canonical
	}
	offs := n.offsets()
	nxt := newGrid(g.w, g.h)
	for x := 0; x < g.w; x++ {
		for y := 0; y < g.h; y++ {
			if rule.Next(g.count(x, y, offs)) != 0 {
				nxt.cells[nxt.index(x, y)] = 1
			}
		}
	}
	return nxt, nil
}
