// Package entity provides the entities that move through a streamed level.
package entity

import "github.com/samdwyer/chunkforge/internal/world"

// Anchor is anything that keeps chunks loaded around it, usually the player.
// Positions are world tile coordinates.
type Anchor struct {
	ID           string
	X, Y         int
	Symbol       rune
	VisionRadius int
}

// NewAnchor creates an anchor at the given world tile.
func NewAnchor(id string, x, y int) *Anchor {
	return &Anchor{
		ID:           id,
		X:            x,
		Y:            y,
		Symbol:       '@',
		VisionRadius: 6,
	}
}

// Move updates the anchor position by the given delta.
func (a *Anchor) Move(dx, dy int) {
	a.X += dx
	a.Y += dy
}

// Position returns the current x, y coordinates.
func (a *Anchor) Position() (int, int) {
	return a.X, a.Y
}

// Chunk returns the chunk coordinate the anchor stands in.
func (a *Anchor) Chunk(width, height int) world.Coord {
	c, _, _ := world.ChunkOf(a.X, a.Y, width, height)
	return c
}

// Sees reports whether world tile (x, y) lies within the vision radius.
func (a *Anchor) Sees(x, y int) bool {
	dx, dy := x-a.X, y-a.Y
	return dx*dx+dy*dy <= a.VisionRadius*a.VisionRadius
}
