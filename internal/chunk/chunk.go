// Package chunk defines the live chunk model and its persistence blob format.
package chunk

import (
	"slices"

	"github.com/samdwyer/chunkforge/internal/world"
)

// Origin values for chunks that did not come from a library template.
const (
	OriginDensity  = "density"
	OriginFallback = "fallback"
)

// Chunk is one generated tile grid on the chunk lattice.
//
// A chunk is owned by exactly one goroutine at a time: the worker that built
// it until handoff, then the lifecycle manager's main loop.
type Chunk struct {
	Coord      world.Coord
	Grid       *world.Grid
	Connectors []world.Connector
	Seed       uint64
	Origin     string // Template ID or one of the Origin constants

	vision []uint64
	dirty  bool
}

// New wraps a grid and its connectors into a clean chunk.
func New(coord world.Coord, grid *world.Grid, conns []world.Connector, seed uint64, origin string) *Chunk {
	conns = slices.Clone(conns)
	world.SortConnectors(conns)
	return &Chunk{
		Coord:      coord,
		Grid:       grid,
		Connectors: conns,
		Seed:       seed,
		Origin:     origin,
	}
}

// Width returns the chunk width in tiles.
func (c *Chunk) Width() int { return c.Grid.Width }

// Height returns the chunk height in tiles.
func (c *Chunk) Height() int { return c.Grid.Height }

// Tile returns the tile at local (x, y).
func (c *Chunk) Tile(x, y int) world.Tile { return c.Grid.At(x, y) }

// SetTile changes a tile, marking the chunk dirty. Changes on the border
// re-derive the connector set; openings that already had a connector keep
// their path type, new ones become side paths.
func (c *Chunk) SetTile(x, y int, t world.Tile) bool {
	if !c.Grid.Set(x, y, t) {
		return false
	}
	c.dirty = true
	if c.Grid.OnBorder(x, y) {
		c.Connectors = world.DeriveConnectors(c.Grid, c.Connectors, world.PathSide)
	}
	return true
}

// Dirty reports whether the chunk changed since it was generated or restored.
func (c *Chunk) Dirty() bool { return c.dirty }

// MarkClean clears the dirty flag after a successful save.
func (c *Chunk) MarkClean() { c.dirty = false }

// HasVision reports whether any tile has been marked seen.
func (c *Chunk) HasVision() bool { return c.vision != nil }

// Seen reports whether local (x, y) has been explored.
func (c *Chunk) Seen(x, y int) bool {
	if c.vision == nil || !c.Grid.InBounds(x, y) {
		return false
	}
	i := y*c.Grid.Width + x
	return c.vision[i/64]&(1<<(i%64)) != 0
}

// MarkSeen records local (x, y) as explored and reports whether it was new.
func (c *Chunk) MarkSeen(x, y int) bool {
	if !c.Grid.InBounds(x, y) || c.Seen(x, y) {
		return false
	}
	if c.vision == nil {
		c.vision = make([]uint64, (len(c.Grid.Tiles)+63)/64)
	}
	i := y*c.Grid.Width + x
	c.vision[i/64] |= 1 << (i % 64)
	c.dirty = true
	return true
}

// ConnectorsOn returns the chunk's connectors on one side.
func (c *Chunk) ConnectorsOn(s world.Side) []world.Connector {
	return world.OnSide(c.Connectors, s)
}

// Clone returns a deep copy that shares nothing with the original.
func (c *Chunk) Clone() *Chunk {
	return &Chunk{
		Coord:      c.Coord,
		Grid:       c.Grid.Clone(),
		Connectors: slices.Clone(c.Connectors),
		Seed:       c.Seed,
		Origin:     c.Origin,
		vision:     slices.Clone(c.vision),
		dirty:      c.dirty,
	}
}

// WorldOrigin returns the world tile coordinate of local (0, 0).
func (c *Chunk) WorldOrigin() (x, y int) {
	return c.Coord.X * c.Grid.Width, c.Coord.Y * c.Grid.Height
}
