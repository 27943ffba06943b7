// Package world provides the tile grid, chunk coordinate and connector types
// shared by the generators, the lifecycle manager and the collaborators.
package world

// Tile represents a single map tile.
type Tile byte

const (
	// TileWall represents an impassable wall tile.
	TileWall Tile = '#'
	// TileFloor represents a passable floor tile.
	TileFloor Tile = '.'
)

// IsPassable returns true if the tile can be walked on.
func (t Tile) IsPassable() bool {
	return t == TileFloor
}

// Rune returns the tile's display character.
func (t Tile) Rune() rune {
	return rune(t)
}

// ParseTile converts an authoring character into a tile.
// Anything other than '.' is treated as wall.
func ParseTile(r rune) Tile {
	if r == rune(TileFloor) {
		return TileFloor
	}
	return TileWall
}
