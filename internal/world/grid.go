package world

import (
	"fmt"
	"slices"
	"strings"
)

// Grid is a row-major rectangle of tiles.
type Grid struct {
	Width  int
	Height int
	Tiles  []Tile
}

// NewGrid creates a grid filled with the given tile.
func NewGrid(width, height int, fill Tile) *Grid {
	tiles := make([]Tile, width*height)
	for i := range tiles {
		tiles[i] = fill
	}
	return &Grid{Width: width, Height: height, Tiles: tiles}
}

// ParseRows builds a grid from authoring rows ('#' wall, '.' floor).
func ParseRows(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid has no rows")
	}
	width := len(rows[0])
	g := NewGrid(width, len(rows), TileWall)
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has length %d, want %d", y, len(row), width)
		}
		for x, r := range row {
			g.Tiles[y*width+x] = ParseTile(r)
		}
	}
	return g, nil
}

// InBounds reports whether (x, y) lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// At returns the tile at (x, y). Out-of-bounds reads are walls.
func (g *Grid) At(x, y int) Tile {
	if !g.InBounds(x, y) {
		return TileWall
	}
	return g.Tiles[y*g.Width+x]
}

// IsPassable returns true if the given position can be walked on.
func (g *Grid) IsPassable(x, y int) bool {
	return g.At(x, y).IsPassable()
}

// Set writes a tile and reports whether anything changed.
func (g *Grid) Set(x, y int, t Tile) bool {
	if !g.InBounds(x, y) {
		return false
	}
	i := y*g.Width + x
	if g.Tiles[i] == t {
		return false
	}
	g.Tiles[i] = t
	return true
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{Width: g.Width, Height: g.Height, Tiles: slices.Clone(g.Tiles)}
}

// Equal reports whether two grids have identical size and tiles.
func (g *Grid) Equal(o *Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && slices.Equal(g.Tiles, o.Tiles)
}

// Rows renders the grid in the authoring format.
func (g *Grid) Rows() []string {
	rows := make([]string, g.Height)
	for y := range rows {
		var b strings.Builder
		b.Grow(g.Width)
		for x := 0; x < g.Width; x++ {
			b.WriteByte(byte(g.At(x, y)))
		}
		rows[y] = b.String()
	}
	return rows
}

// FloorCount returns the number of passable tiles.
func (g *Grid) FloorCount() int {
	n := 0
	for _, t := range g.Tiles {
		if t.IsPassable() {
			n++
		}
	}
	return n
}

// EdgeOpenings returns the positions along a side whose edge cell is floor.
func (g *Grid) EdgeOpenings(s Side) []int {
	var out []int
	for pos := 0; pos < s.EdgeLength(g.Width, g.Height); pos++ {
		x, y := s.EdgeCell(pos, g.Width, g.Height)
		if g.IsPassable(x, y) {
			out = append(out, pos)
		}
	}
	return out
}

// OnBorder reports whether (x, y) is an edge cell.
func (g *Grid) OnBorder(x, y int) bool {
	return x == 0 || y == 0 || x == g.Width-1 || y == g.Height-1
}

// CarveRoom sets all interior tiles within the room to floor.
func (g *Grid) CarveRoom(room Room) {
	for y := room.Y; y < room.Y+room.Height; y++ {
		for x := room.X; x < room.X+room.Width; x++ {
			g.carveInterior(x, y)
		}
	}
}

// CarveHorizontal carves a horizontal tunnel between x1 and x2 on row y.
func (g *Grid) CarveHorizontal(x1, x2, y int) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		g.carveInterior(x, y)
	}
}

// CarveVertical carves a vertical tunnel between y1 and y2 on column x.
func (g *Grid) CarveVertical(y1, y2, x int) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		g.carveInterior(x, y)
	}
}

// carveInterior opens a tile unless it lies on the border. Border cells are
// only opened through connectors.
func (g *Grid) carveInterior(x, y int) {
	if x > 0 && x < g.Width-1 && y > 0 && y < g.Height-1 {
		g.Tiles[y*g.Width+x] = TileFloor
	}
}
