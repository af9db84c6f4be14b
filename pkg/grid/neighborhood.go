package grid

import (
	"fmt"
	"strings"
)

// Neighborhood selects which surrounding cells contribute to a neighbor count.
type Neighborhood uint8

const (
	// Orthogonal counts the four axis-aligned neighbors.
	Orthogonal Neighborhood = iota + 1
	// Moore counts all eight neighbors including diagonals.
	Moore
)

type offset struct{ dx, dy int }

var (
	orthogonalOffsets = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	mooreOffsets      = []offset{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
)

func (n Neighborhood) offsets() []offset {
	switch n {
	case Orthogonal:
		return orthogonalOffsets
	case Moore:
		return mooreOffsets
	default:
		return nil
	}
}

// Size returns how many cells the neighborhood covers, or 0 if n is unknown.
func (n Neighborhood) Size() int { return len(n.offsets()) }

// Valid reports whether n is a known neighborhood.
func (n Neighborhood) Valid() bool { return n.offsets() != nil }

// String returns the lowercase name of the neighborhood.
func (n Neighborhood) String() string {
	switch n {
	case Orthogonal:
		return "orthogonal"
	case Moore:
		return "moore"
	default:
		return fmt.Sprintf("neighborhood(%d)", uint8(n))
	}
}

// ParseNeighborhood resolves a neighborhood by name. "von-neumann" is
// accepted as an alias for orthogonal.
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "orthogonal", "von-neumann", "vonneumann":
		return Orthogonal, nil
	case "moore":
		return Moore, nil
	default:
		return 0, fmt.Errorf("unknown neighborhood %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n Neighborhood) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("unknown neighborhood %d", uint8(n))
	}
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Neighborhood) UnmarshalText(text []byte) error {
	parsed, err := ParseNeighborhood(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
