package grid

import "errors"

// Errors returned by grid operations. Callers match them with errors.Is; the
// returned errors wrap them with the offending coordinates or values.
var (
	// ErrShape reports a structure that is not a rectangular 2D grid, or a
	// negative dimension.
	ErrShape = errors.New("invalid grid shape")
	// ErrValue reports a cell entry that cannot be used as a 0/1 integer.
	ErrValue = errors.New("invalid cell value")
	// ErrIndex reports a coordinate outside the grid.
	ErrIndex = errors.New("cell index out of range")
)
