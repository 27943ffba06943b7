package assemble

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/macro"
	"github.com/samdwyer/chunkforge/internal/seed"
	"github.com/samdwyer/chunkforge/internal/world"
)

// Density synthesizes cave chunks from a macro map.
//
// Every tile is a pure function of its world coordinate: bilinear density
// between the four macro lattice corners of its chunk, plus noise that only
// matters near the threshold. Neighbouring chunks therefore agree on both
// sides of every border without looking at each other.
type Density struct {
	WorldSeed     uint64
	Macro         *macro.Map
	Width, Height int
	Amplitude     float64 // Noise amplitude at the threshold
	Scale         float64 // Noise frequency per tile

	noise opensimplex.Noise
}

// NewDensity creates a density generator for w×h chunks.
func NewDensity(worldSeed uint64, m *macro.Map, w, h int) *Density {
	return &Density{
		WorldSeed: worldSeed,
		Macro:     m,
		Width:     w,
		Height:    h,
		Amplitude: 0.18,
		Scale:     0.11,
		noise:     opensimplex.New(seed.Int64(seed.Derive(worldSeed, "density"))),
	}
}

// Generate synthesizes the chunk at coord. Connectors sit wherever a border
// tile and the tile across the border are both floor; they are all main
// paths.
func (d *Density) Generate(coord world.Coord) *chunk.Chunk {
	s := seed.Chunk(d.WorldSeed, coord)
	w, h := d.Width, d.Height
	ox, oy := coord.X*w, coord.Y*h

	g := world.NewGrid(w, h, world.TileWall)
	for y := range h {
		for x := range w {
			if d.Floor(ox+x, oy+y) {
				g.Tiles[y*w+x] = world.TileFloor
			}
		}
	}

	var conns []world.Connector
	for _, side := range world.Sides {
		dx, dy := side.Delta()
		for pos := 0; pos < side.EdgeLength(w, h); pos++ {
			x, y := side.EdgeCell(pos, w, h)
			if g.IsPassable(x, y) && d.Floor(ox+x+dx, oy+y+dy) {
				conns = append(conns, world.Connector{Side: side, Pos: pos, Path: world.PathMain})
			}
		}
	}

	return chunk.New(coord, g, conns, s, chunk.OriginDensity)
}

// Floor reports whether the world tile (wx, wy) is floor after smoothing:
// raw floor, or a lone wall whose four neighbours are all floor.
func (d *Density) Floor(wx, wy int) bool {
	if d.raw(wx, wy) {
		return true
	}
	for _, s := range world.Sides {
		dx, dy := s.Delta()
		if !d.raw(wx+dx, wy+dy) {
			return false
		}
	}
	return true
}

// Value returns the perturbed density at a world tile.
func (d *Density) Value(wx, wy int) float64 {
	cx, cy := world.FloorDiv(wx, d.Width), world.FloorDiv(wy, d.Height)
	lx, ly := world.Mod(wx, d.Width), world.Mod(wy, d.Height)

	d00 := float64(d.Macro.Corner(world.Coord{X: cx, Y: cy}))
	d10 := float64(d.Macro.Corner(world.Coord{X: cx + 1, Y: cy}))
	d01 := float64(d.Macro.Corner(world.Coord{X: cx, Y: cy + 1}))
	d11 := float64(d.Macro.Corner(world.Coord{X: cx + 1, Y: cy + 1}))

	u := (float64(lx) + 0.5) / float64(d.Width)
	v := (float64(ly) + 0.5) / float64(d.Height)
	base := lerp(lerp(d00, d10, u), lerp(d01, d11, u), v)

	// Weight is 1 at the threshold and 0 at either extreme.
	weight := 1 - math.Abs(base-macro.OpenThreshold)*2
	if weight < 0 {
		weight = 0
	}
	n := d.noise.Eval2(float64(wx)*d.Scale, float64(wy)*d.Scale)
	return base + d.Amplitude*weight*n
}

// raw thresholds the density. The four tiles around a lattice point whose
// macro cell is open are always floor, so every open cell, stairs included,
// shows up in the chunks that meet there.
func (d *Density) raw(wx, wy int) bool {
	return d.nearOpenCorner(wx, wy) || d.Value(wx, wy) >= macro.OpenThreshold
}

func (d *Density) nearOpenCorner(wx, wy int) bool {
	cx, cy := world.FloorDiv(wx, d.Width), world.FloorDiv(wy, d.Height)
	lx, ly := world.Mod(wx, d.Width), world.Mod(wy, d.Height)
	var xs, ys []int
	if lx == 0 {
		xs = append(xs, cx)
	}
	if lx == d.Width-1 {
		xs = append(xs, cx+1)
	}
	if ly == 0 {
		ys = append(ys, cy)
	}
	if ly == d.Height-1 {
		ys = append(ys, cy+1)
	}
	for _, x := range xs {
		for _, y := range ys {
			if d.Macro.Corner(world.Coord{X: x, Y: y}) >= macro.OpenThreshold {
				return true
			}
		}
	}
	return false
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
