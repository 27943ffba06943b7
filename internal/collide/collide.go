// Package collide builds collision shapes for loaded chunks and answers
// blocking queries in world tile coordinates.
package collide

import (
	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/world"
)

// Rect is an axis-aligned block of wall tiles in local chunk coordinates.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether local (x, y) lies in the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Shape merges a grid's wall tiles into rectangles. It grows each rectangle
// right first, then down, so long wall runs become few shapes. Every wall
// tile is covered by exactly one rectangle.
func Shape(g *world.Grid) []Rect {
	used := make([]bool, len(g.Tiles))
	var rects []Rect
	for y := range g.Height {
		for x := range g.Width {
			i := y*g.Width + x
			if used[i] || g.Tiles[i].IsPassable() {
				continue
			}
			w := 1
			for x+w < g.Width && !used[i+w] && !g.Tiles[i+w].IsPassable() {
				w++
			}
			h := 1
		grow:
			for y+h < g.Height {
				for dx := range w {
					j := (y+h)*g.Width + x + dx
					if used[j] || g.Tiles[j].IsPassable() {
						break grow
					}
				}
				h++
			}
			for dy := range h {
				for dx := range w {
					used[(y+dy)*g.Width+x+dx] = true
				}
			}
			rects = append(rects, Rect{X: x, Y: y, W: w, H: h})
		}
	}
	return rects
}

// Index holds the collision shapes of every loaded chunk. It is a stream
// presenter and must be used from the goroutine that ticks the manager.
type Index struct {
	width, height int
	shapes        map[world.Coord][]Rect
}

// NewIndex creates an index for chunks of the given size.
func NewIndex(width, height int) *Index {
	return &Index{width: width, height: height, shapes: make(map[world.Coord][]Rect)}
}

// Build computes the chunk's shape.
func (x *Index) Build(c *chunk.Chunk) {
	x.shapes[c.Coord] = Shape(c.Grid)
}

// Refresh recomputes a loaded chunk's shape after its tiles changed.
func (x *Index) Refresh(c *chunk.Chunk) {
	if _, ok := x.shapes[c.Coord]; ok {
		x.shapes[c.Coord] = Shape(c.Grid)
	}
}

// Teardown drops the chunk's shape.
func (x *Index) Teardown(c world.Coord) {
	delete(x.shapes, c)
}

// Len returns the number of chunks with shapes.
func (x *Index) Len() int { return len(x.shapes) }

// Shapes returns a chunk's rectangles.
func (x *Index) Shapes(c world.Coord) ([]Rect, bool) {
	r, ok := x.shapes[c]
	return r, ok
}

// Blocked reports whether world tile (wx, wy) is solid. Tiles in chunks
// that are not loaded are solid.
func (x *Index) Blocked(wx, wy int) bool {
	c, lx, ly := world.ChunkOf(wx, wy, x.width, x.height)
	rects, ok := x.shapes[c]
	if !ok {
		return true
	}
	for _, r := range rects {
		if r.Contains(lx, ly) {
			return true
		}
	}
	return false
}
