package world

import "fmt"

// Coord addresses a chunk on the infinite chunk lattice.
type Coord struct {
	X, Y int
}

// String returns the coordinate as "(x,y)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Neighbor returns the adjacent coordinate across the given side.
func (c Coord) Neighbor(s Side) Coord {
	dx, dy := s.Delta()
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Chebyshev returns the chessboard distance between two coordinates.
// Load and unload radii are measured with it, so the loaded area is a square.
func (c Coord) Chebyshev(o Coord) int {
	return max(abs(c.X-o.X), abs(c.Y-o.Y))
}

// Less orders coordinates row-major. Used as a deterministic tie-break.
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// ChunkOf returns the chunk containing the world tile (x, y) for chunks of
// the given dimensions, along with the tile's local position inside it.
func ChunkOf(x, y, width, height int) (c Coord, lx, ly int) {
	c = Coord{X: FloorDiv(x, width), Y: FloorDiv(y, height)}
	return c, Mod(x, width), Mod(y, height)
}

// FloorDiv divides rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	if r := a % b; r < 0 {
		q--
	}
	return q
}

// Mod returns a non-negative remainder. b must be positive.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
